package materials

import (
	"fmt"
	"strings"

	"github.com/obrastock/obrastock/internal/masterdata/shared"
	internalshared "github.com/obrastock/obrastock/internal/shared"
)

func (s *Service) validate(m Material) error {
	if strings.TrimSpace(m.Code) == "" {
		return fmt.Errorf("%w: code", shared.ErrRequiredField)
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: name", shared.ErrRequiredField)
	}
	switch internalshared.ItemKind(m.Kind) {
	case internalshared.ItemMaterial, internalshared.ItemService, internalshared.ItemEquipment, internalshared.ItemPPE:
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", shared.ErrValidation, m.Kind)
	}
}
