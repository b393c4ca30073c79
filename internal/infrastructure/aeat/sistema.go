package aeat

import (
	"github.com/facturalia/verifactu-api/pkg/config"
)

// SistemaFromConfig construye el bloque SistemaInformatico declarado en cada
// envío y consulta a partir de la configuración del productor del software.
func SistemaFromConfig(cfg config.AEATConfig) SistemaInformatico {
	return SistemaInformatico{
		NombreRazon:                 cfg.VendorName,
		NIF:                         cfg.VendorNIF,
		NombreSistemaInformatico:    cfg.SystemName,
		IdSistemaInformatico:        cfg.SystemID,
		Version:                     cfg.Version,
		NumeroInstalacion:           cfg.InstallNumber,
		TipoUsoPosibleSoloVerifactu: flag(cfg.OnlyVerifactu),
		TipoUsoPosibleMultiOT:       flag(cfg.MultiOT),
		IndicadorMultiplesOT:        flag(cfg.HasMultipleOT),
	}
}

func flag(b bool) string {
	if b {
		return "S"
	}
	return "N"
}
