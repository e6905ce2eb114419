package dialogue

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"avatar-talk/server/internal/emotion"
	"avatar-talk/server/internal/model"
)

//go:embed data/personas.yaml
var defaultCatalog []byte

var (
	ErrUnknownPersona = errors.New("unknown persona")
	ErrUnknownPhase   = errors.New("unknown phase")
)

// Line 一句带情绪的台词。
type Line struct {
	Text    string        `yaml:"text"`
	Emotion emotion.Label `yaml:"emotion"`
}

// Entry 一条脚本问答。情绪是结构化字段，答案里不再夹带标记。
type Entry struct {
	Match   string        `yaml:"match"`
	Answer  string        `yaml:"answer"`
	Emotion emotion.Label `yaml:"emotion"`
	Media   *model.Media  `yaml:"media"`
}

// PhaseScript 一个阶段的问答与建议卡片，条目顺序即匹配优先级。
type PhaseScript struct {
	Phase       Phase    `yaml:"phase"`
	Suggestions []string `yaml:"suggestions"`
	Entries     []Entry  `yaml:"entries"`
}

// Script 某个人设在某种语言下的全部内容。
type Script struct {
	Profile        string            `yaml:"profile"`
	Greeting       Line              `yaml:"greeting"`
	Greetings      map[string]string `yaml:"greetings"`
	SelectionReply *Line             `yaml:"selection_reply"`
	Phases         []PhaseScript     `yaml:"phases"`
}

// Persona 一个对话变体。
type Persona struct {
	ID         string             `yaml:"id"`
	Name       string             `yaml:"name"`
	Thresholds []int              `yaml:"thresholds"`
	Languages  map[string]*Script `yaml:"languages"`

	phases Phases
}

// Catalog 全部人设，加载后只读，可并发访问。
type Catalog struct {
	DefaultPersona  string    `yaml:"default_persona"`
	DefaultLanguage string    `yaml:"default_language"`
	Personas        []Persona `yaml:"personas"`

	byID map[string]*Persona
}

// LoadDefault 加载内置的人设表。
func LoadDefault() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFile 从文件加载人设表，路径为空时使用内置表。
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return LoadDefault()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dialogue catalog: %w", err)
	}
	return Parse(data)
}

// Parse 解析并校验人设表。
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse dialogue catalog: %w", err)
	}
	if err := c.init(); err != nil {
		return nil, fmt.Errorf("validate dialogue catalog: %w", err)
	}
	return &c, nil
}

func (c *Catalog) init() error {
	if len(c.Personas) == 0 {
		return errors.New("no personas defined")
	}
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = "ja"
	}
	c.byID = make(map[string]*Persona, len(c.Personas))

	for i := range c.Personas {
		p := &c.Personas[i]
		if p.ID == "" {
			return fmt.Errorf("persona #%d has no id", i)
		}
		if _, dup := c.byID[p.ID]; dup {
			return fmt.Errorf("duplicate persona %q", p.ID)
		}
		phases, err := NewPhases(p.Thresholds, DefaultPhaseOrder)
		if err != nil {
			return fmt.Errorf("persona %q: %w", p.ID, err)
		}
		p.phases = phases

		for lang, script := range p.Languages {
			if err := script.normalize(); err != nil {
				return fmt.Errorf("persona %q/%s: %w", p.ID, lang, err)
			}
		}
		c.byID[p.ID] = p
	}

	if c.DefaultPersona == "" {
		c.DefaultPersona = c.Personas[0].ID
	}
	if _, ok := c.byID[c.DefaultPersona]; !ok {
		return fmt.Errorf("default persona %q not defined", c.DefaultPersona)
	}
	return nil
}

// normalize 兼容旧数据：答案里若带 [EMOTION:x] 标记则拆出到 Emotion 字段。
// 一个答案最多一个标记。
func (s *Script) normalize() error {
	s.Greeting.Emotion = emotion.Normalize(string(s.Greeting.Emotion))
	if s.SelectionReply != nil {
		s.SelectionReply.Emotion = emotion.Normalize(string(s.SelectionReply.Emotion))
	}
	for pi := range s.Phases {
		ps := &s.Phases[pi]
		if _, ok := phaseIndex(DefaultPhaseOrder, ps.Phase); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownPhase, ps.Phase)
		}
		for ei := range ps.Entries {
			e := &ps.Entries[ei]
			if strings.Count(e.Answer, "[EMOTION:") > 1 {
				return fmt.Errorf("entry %q has more than one emotion marker", e.Match)
			}
			clean, raw, found := emotion.ExtractTag(e.Answer)
			e.Answer = clean
			if found && e.Emotion == "" {
				e.Emotion = emotion.Label(raw)
			}
			e.Emotion = emotion.Normalize(string(e.Emotion))
			if e.Media.Empty() {
				e.Media = nil
			}
		}
	}
	return nil
}

// Persona 按 ID 查人设，未知 ID 返回默认人设和 false。
func (c *Catalog) Persona(id string) (*Persona, bool) {
	if p, ok := c.byID[id]; ok {
		return p, true
	}
	return c.byID[c.DefaultPersona], false
}

// HasPersona 判断 ID 是否存在。
func (c *Catalog) HasPersona(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Script 取人设在某语言下的脚本，缺失语言时退回默认语言。
func (c *Catalog) Script(personaID, language string) *Script {
	p, _ := c.Persona(personaID)
	if s, ok := p.Languages[language]; ok {
		return s
	}
	return p.Languages[c.DefaultLanguage]
}

// Phases 返回人设的阶段划分。
func (c *Catalog) Phases(personaID string) Phases {
	p, _ := c.Persona(personaID)
	return p.phases
}

// Greeting 首次连接的问候。
func (c *Catalog) Greeting(personaID, language string) Line {
	s := c.Script(personaID, language)
	if s == nil {
		return Line{Emotion: emotion.Start}
	}
	return s.Greeting
}

// TierGreeting 按关系档位取问候语，档位缺失时退回 formal 再退回首次问候。
func (c *Catalog) TierGreeting(personaID, language, tier string) string {
	s := c.Script(personaID, language)
	if s == nil {
		return ""
	}
	if g, ok := s.Greetings[tier]; ok && g != "" {
		return g
	}
	if g, ok := s.Greetings["formal"]; ok && g != "" {
		return g
	}
	return s.Greeting.Text
}

// SelectionReply 属性选择后的回复，没有配置时返回 false。
func (c *Catalog) SelectionReply(personaID, language string) (Line, bool) {
	s := c.Script(personaID, language)
	if s == nil || s.SelectionReply == nil {
		return Line{}, false
	}
	return *s.SelectionReply, true
}

// Profile LLM 系统提示里的人设描述。
func (c *Catalog) Profile(personaID, language string) string {
	s := c.Script(personaID, language)
	if s == nil {
		return ""
	}
	return s.Profile
}

// MediaFor 原始问题去掉问号后与某条目完全一致时返回其附件。
func (c *Catalog) MediaFor(personaID, language, message string) *model.Media {
	s := c.Script(personaID, language)
	if s == nil {
		return nil
	}
	q := stripQuestionMarks(message)
	if q == "" {
		return nil
	}
	for _, ps := range s.Phases {
		for _, e := range ps.Entries {
			if e.Media != nil && stripQuestionMarks(e.Match) == q {
				return e.Media
			}
		}
	}
	return nil
}

func (s *Script) phase(p Phase) *PhaseScript {
	for i := range s.Phases {
		if s.Phases[i].Phase == p {
			return &s.Phases[i]
		}
	}
	return nil
}

func stripQuestionMarks(s string) string {
	return strings.TrimSpace(strings.NewReplacer("?", "", "？", "").Replace(s))
}
