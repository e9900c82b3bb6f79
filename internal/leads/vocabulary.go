package leads

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AngelCh415/LEADS_GO/internal/models"
)

const (
	StageGenerated models.Stage = "generated"
	StageEmailed   models.Stage = "emailed"
	StageOpened    models.Stage = "opened"
	StageDemo      models.Stage = "demo"
)

// StageDef es una etapa del funnel con los textos de estado que la representan.
type StageDef struct {
	Name    models.Stage
	Aliases []string
}

// DefaultStages reproduce el vocabulario histórico del dashboard.
func DefaultStages() []StageDef {
	return []StageDef{
		{Name: StageGenerated, Aliases: []string{"", "lead", "leads", "lead generated", "generated", "new"}},
		{Name: StageEmailed, Aliases: []string{"emailed", "email sent", "sent"}},
		{Name: StageOpened, Aliases: []string{"opened", "open", "email opened"}},
		{Name: StageDemo, Aliases: []string{"demo", "demo booked", "demo scheduled"}},
	}
}

var ErrInvalidVocabulary = errors.New("invalid stage vocabulary")

// Vocabulary mapea texto de estado libre a etapas por coincidencia exacta
// sobre el texto normalizado. Nada de substrings.
type Vocabulary struct {
	stages []models.Stage
	table  map[string]models.Stage
}

func NewVocabulary(defs []StageDef) (*Vocabulary, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: no stages", ErrInvalidVocabulary)
	}
	v := &Vocabulary{table: map[string]models.Stage{}}
	seen := map[models.Stage]struct{}{}
	for _, d := range defs {
		name := models.Stage(NormalizeStatus(string(d.Name)))
		if name == "" {
			return nil, fmt.Errorf("%w: empty stage name", ErrInvalidVocabulary)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate stage %q", ErrInvalidVocabulary, name)
		}
		seen[name] = struct{}{}
		v.stages = append(v.stages, name)

		aliases := append([]string{string(name)}, d.Aliases...)
		for _, a := range aliases {
			key := NormalizeStatus(a)
			if prev, ok := v.table[key]; ok && prev != name {
				return nil, fmt.Errorf("%w: alias %q maps to %q and %q", ErrInvalidVocabulary, a, prev, name)
			}
			v.table[key] = name
		}
	}
	return v, nil
}

// MustDefaultVocabulary se usa en tests y como fallback cuando no hay archivo de config.
var defaultVocab = MustDefaultVocabulary()

func MustDefaultVocabulary() *Vocabulary {
	v, err := NewVocabulary(DefaultStages())
	if err != nil {
		panic(err)
	}
	return v
}

// Stages devuelve las etapas en orden de funnel.
func (v *Vocabulary) Stages() []models.Stage {
	out := make([]models.Stage, len(v.stages))
	copy(out, v.stages)
	return out
}

func (v *Vocabulary) Earliest() models.Stage { return v.stages[0] }

// Classify devuelve la etapa para el texto crudo. Si no se reconoce, devuelve
// la primera etapa y ok=false para que quede en diagnósticos.
func (v *Vocabulary) Classify(raw string) (models.Stage, bool) {
	if s, ok := v.table[NormalizeStatus(raw)]; ok {
		return s, true
	}
	return v.Earliest(), false
}

// Index devuelve la posición de la etapa en el funnel, o -1.
func (v *Vocabulary) Index(s models.Stage) int {
	for i, st := range v.stages {
		if st == s {
			return i
		}
	}
	return -1
}

// NormalizeStatus: trim, minúsculas, "_" como espacio, espacios colapsados.
func NormalizeStatus(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, "_", " "))
	return strings.Join(strings.Fields(s), " ")
}
