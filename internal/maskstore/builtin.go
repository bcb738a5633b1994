package maskstore

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/starford/masque/internal/models"
)

type builtinFile struct {
	Masks []builtinMask `yaml:"masks"`
}

type builtinMask struct {
	ID          string              `yaml:"id"`
	Name        string              `yaml:"name"`
	Avatar      string              `yaml:"avatar"`
	Lang        string              `yaml:"lang"`
	HideContext bool                `yaml:"hide_context"`
	CreatedAt   int64               `yaml:"created_at"`
	ModelConfig *models.ModelConfig `yaml:"model_config"`
	Context     []builtinMessage    `yaml:"context"`
}

type builtinMessage struct {
	Role    models.Role `yaml:"role"`
	Content string      `yaml:"content"`
}

// LoadBuiltin reads preset masks from a YAML file. Presets without a
// model_config get the defaults; ids default to builtin-<n>.
func LoadBuiltin(path string) ([]models.Mask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("maskstore: read builtin: %w", err)
	}
	return ParseBuiltin(data)
}

// ParseBuiltin decodes preset masks from YAML.
func ParseBuiltin(data []byte) ([]models.Mask, error) {
	var f builtinFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("maskstore: parse builtin: %w", err)
	}

	out := make([]models.Mask, 0, len(f.Masks))
	seen := make(map[string]bool, len(f.Masks))
	for i, b := range f.Masks {
		m := models.Mask{
			ID:          b.ID,
			Name:        b.Name,
			Avatar:      b.Avatar,
			Lang:        b.Lang,
			HideContext: b.HideContext,
			CreatedAt:   b.CreatedAt,
			ModelConfig: models.DefaultModelConfig(),
			Context:     make([]models.ChatMessage, 0, len(b.Context)),
			Builtin:     true,
			Order:       i,
		}
		if m.ID == "" {
			m.ID = fmt.Sprintf("builtin-%d", i+1)
		}
		if seen[m.ID] {
			return nil, fmt.Errorf("maskstore: duplicate builtin id %q", m.ID)
		}
		seen[m.ID] = true
		if m.Avatar == "" {
			m.Avatar = models.DefaultMaskAvatar
		}
		if b.ModelConfig != nil {
			m.ModelConfig = *b.ModelConfig
		}
		for j, c := range b.Context {
			if !c.Role.Valid() {
				return nil, fmt.Errorf("maskstore: builtin %q: context %d: invalid role %q", m.Name, j, c.Role)
			}
			msg := models.NewMessage(c.Role, models.Text(c.Content), "")
			msg.ID = fmt.Sprintf("%s-%d", m.ID, j)
			m.Context = append(m.Context, msg)
		}
		out = append(out, m)
	}
	return out, nil
}
