package dialogue

import "github.com/cloudwego/eino/schema"

type Trimmer interface {
	Trim(history []*schema.Message) []*schema.Message
}

// KeepSystemLastNTrimmer keeps every system message and the last N others.
// When N <= 0 only system messages survive. Nil entries are dropped.
type KeepSystemLastNTrimmer struct {
	N int
}

func (t KeepSystemLastNTrimmer) Trim(history []*schema.Message) []*schema.Message {
	others := 0
	for _, m := range history {
		if m != nil && m.Role != schema.System {
			others++
		}
	}
	skip := others - max(t.N, 0)

	out := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		if m == nil {
			continue
		}
		if m.Role != schema.System && skip > 0 {
			skip--
			continue
		}
		out = append(out, m)
	}
	return out
}
