package classifier

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"lid-inspector/internal/domain/entity"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// Example эталонный ответ для few-shot части запроса.
type Example struct {
	Reply string `yaml:"reply"`
	Image string `yaml:"image"`
}

// Prompts набор текстов, из которых собирается запрос к модели.
type Prompts struct {
	Persona     string         `yaml:"persona"`
	Glare       string         `yaml:"glare"`
	NoBrand     string         `yaml:"no_brand"`
	ReplyFormat string         `yaml:"reply_format"`
	Levels      map[int]string `yaml:"levels"`
	Examples    []Example      `yaml:"examples"`
}

// DefaultPrompts встроенный набор.
func DefaultPrompts() *Prompts {
	p, err := ParsePrompts(defaultPrompts)
	if err != nil {
		panic(fmt.Sprintf("embedded prompts.yaml: %v", err))
	}
	return p
}

// LoadPrompts читает набор из файла; пустой путь означает встроенный набор.
func LoadPrompts(path string) (*Prompts, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPrompts(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, entity.Wrap(entity.ErrConfiguration, "read prompts file", err)
	}
	p, err := ParsePrompts(data)
	if err != nil {
		return nil, entity.Wrap(entity.ErrConfiguration, path, err)
	}
	return p, nil
}

// ParsePrompts разбирает YAML и проверяет, что заданы все уровни строгости.
func ParsePrompts(data []byte) (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	for level := entity.MinStrictness; level <= entity.MaxStrictness; level++ {
		if strings.TrimSpace(p.Levels[level]) == "" {
			return nil, fmt.Errorf("parse prompts: missing guidance for strictness %d", level)
		}
	}
	if strings.TrimSpace(p.ReplyFormat) == "" {
		return nil, fmt.Errorf("parse prompts: reply_format is empty")
	}
	return &p, nil
}

// System собирает системный промпт для снимка настроек.
// В режиме без брендирования текст уровня заменяется текстом no_brand.
func (p *Prompts) System(s entity.Settings) string {
	focus := p.Levels[s.Strictness]
	if focus == "" {
		focus = p.Levels[entity.DefaultStrictness]
	}
	if s.NoBrandMode {
		focus = p.NoBrand
	}
	if p.Glare != "" {
		focus = p.Glare + " " + focus
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(p.Persona))
	fmt.Fprintf(&b, " At strictness level %d/%d, apply this: %s ", s.Strictness, entity.MaxStrictness, strings.TrimSpace(focus))
	b.WriteString(strings.TrimSpace(p.ReplyFormat))
	return b.String()
}

// References возвращает текстовые эталоны; в режиме без брендирования их нет.
func (p *Prompts) References(s entity.Settings) []string {
	if s.NoBrandMode {
		return nil
	}
	out := make([]string, 0, len(p.Examples))
	for _, ex := range p.Examples {
		line := ex.Reply
		if ex.Image != "" {
			line += " Image: " + ex.Image
		}
		out = append(out, line)
	}
	return out
}
