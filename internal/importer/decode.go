package importer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/starford/masque/internal/apperr"
	"github.com/starford/masque/internal/models"
)

// Decode parses a mask file. A file holds either one mask object or an
// array of masks. Context entries and the model configuration are
// validated; a missing model configuration gets the defaults.
func Decode(data []byte) ([]models.Mask, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty mask file", apperr.ErrInvalid)
	}

	var masks []models.Mask
	if data[0] == '[' {
		if err := json.Unmarshal(data, &masks); err != nil {
			return nil, fmt.Errorf("%w: decode masks: %v", apperr.ErrInvalid, err)
		}
	} else {
		var m models.Mask
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: decode mask: %v", apperr.ErrInvalid, err)
		}
		masks = []models.Mask{m}
	}

	for i := range masks {
		if err := normalize(&masks[i]); err != nil {
			return nil, fmt.Errorf("%w: mask %d: %v", apperr.ErrInvalid, i, err)
		}
	}
	return masks, nil
}

func normalize(m *models.Mask) error {
	if m.ModelConfig == (models.ModelConfig{}) {
		m.ModelConfig = models.DefaultModelConfig()
	}
	if err := m.ModelConfig.Validate(); err != nil {
		return fmt.Errorf("modelConfig: %v", err)
	}
	for i, msg := range m.Context {
		if err := msg.Validate(); err != nil {
			return fmt.Errorf("context %d: %v", i, err)
		}
	}
	return nil
}
