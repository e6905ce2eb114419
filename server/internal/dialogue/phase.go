package dialogue

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"avatar-talk/server/internal/model"
)

// Phase 对话阶段。
type Phase string

const (
	PhaseOverview  Phase = "phase1_overview"
	PhaseTechnical Phase = "phase2_technical"
	PhasePersonal  Phase = "phase3_personal"
)

// DefaultPhaseOrder 阶段的先后顺序。
var DefaultPhaseOrder = []Phase{PhaseOverview, PhaseTechnical, PhasePersonal}

// MaxSuggestions 一次最多给出的建议卡片数。
const MaxSuggestions = 3

// Phases 把“已选卡片数”映射为阶段的阶梯函数。
// Thresholds[i] 是进入 Order[i+1] 所需的最小计数。
type Phases struct {
	Thresholds []int
	Order      []Phase
}

// NewPhases 校验阈值严格递增且数量与阶段数匹配。
func NewPhases(thresholds []int, order []Phase) (Phases, error) {
	if len(order) == 0 {
		return Phases{}, errors.New("no phases")
	}
	if len(thresholds) == 0 {
		thresholds = []int{3, 6}
	}
	if len(thresholds) != len(order)-1 {
		return Phases{}, fmt.Errorf("need %d thresholds for %d phases, got %d", len(order)-1, len(order), len(thresholds))
	}
	for i, th := range thresholds {
		if th < 0 || (i > 0 && th <= thresholds[i-1]) {
			return Phases{}, fmt.Errorf("thresholds must be non-negative and strictly increasing: %v", thresholds)
		}
	}
	return Phases{
		Thresholds: append([]int(nil), thresholds...),
		Order:      append([]Phase(nil), order...),
	}, nil
}

// PhaseFor 纯函数：对计数单调不减。
func (p Phases) PhaseFor(selectedCount int) Phase {
	if len(p.Order) == 0 {
		return PhaseOverview
	}
	for i, th := range p.Thresholds {
		if selectedCount < th {
			return p.Order[i]
		}
	}
	return p.Order[len(p.Order)-1]
}

// PhaseFor 使用默认阈值 3/6。
func PhaseFor(selectedCount int) Phase {
	p, _ := NewPhases(nil, DefaultPhaseOrder)
	return p.PhaseFor(selectedCount)
}

func phaseIndex(order []Phase, p Phase) (int, bool) {
	for i, v := range order {
		if v == p {
			return i, true
		}
	}
	return 0, false
}

// Tracker 按阶段给出去重后的建议卡片。随机源可注入以便测试复现。
type Tracker struct {
	catalog *Catalog

	mu  sync.Mutex
	rng *rand.Rand
}

func NewTracker(catalog *Catalog, rng *rand.Rand) *Tracker {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Tracker{catalog: catalog, rng: rng}
}

// PhaseFor 按人设的阈值计算阶段。
func (t *Tracker) PhaseFor(persona string, selectedCount int) Phase {
	return t.catalog.Phases(persona).PhaseFor(selectedCount)
}

// SuggestionsFor 过滤掉已选卡片（大小写/空白不敏感）；
// 剩余不超过 3 个时全部返回，否则无放回随机抽 3 个。
func (t *Tracker) SuggestionsFor(phase Phase, alreadySelected []string, persona, language string) []string {
	script := t.catalog.Script(persona, language)
	if script == nil {
		return []string{}
	}
	ps := script.phase(phase)
	if ps == nil {
		return []string{}
	}

	seen := model.ChipSet(alreadySelected)
	available := make([]string, 0, len(ps.Suggestions))
	for _, s := range ps.Suggestions {
		if !seen.Has(s) {
			available = append(available, s)
		}
	}
	if len(available) <= MaxSuggestions {
		return available
	}

	t.mu.Lock()
	t.rng.Shuffle(len(available), func(i, j int) {
		available[i], available[j] = available[j], available[i]
	})
	t.mu.Unlock()
	return available[:MaxSuggestions]
}
