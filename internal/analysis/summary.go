// Package analysis computes aggregate statistics over a loaded compilation
// model.
package analysis

import (
	"sort"

	"jitlens/internal/jitlog"
)

// ReasonCount pairs an inline-failure reason with how often it occurred.
type ReasonCount struct {
	Reason string
	Count  int
}

// Summary is the model-wide roll-up shown by the summary command.
type Summary struct {
	Classes      int
	Members      int
	Compilations int
	OSR          int
	Failed       int

	Inlined      int
	InlineFailed int
	Traps        int
	Eliminations int
	Intrinsics   int

	TopInlineFailReasons []ReasonCount
}

// Summarize walks every compilation in the model once.
func Summarize(model *jitlog.ParseResult, topReasons int) Summary {
	var s Summary
	if model == nil {
		return s
	}

	failReasons := make(map[string]int)
	for _, cls := range model.Classes() {
		s.Classes++
		for _, member := range cls.Members {
			s.Members++
			for _, comp := range member.Compilations {
				s.Compilations++
				if comp.OSR {
					s.OSR++
				}
				if !comp.Success {
					s.Failed++
				}
				for _, in := range comp.Inlines {
					if in.Inlined {
						s.Inlined++
					} else {
						s.InlineFailed++
						failReasons[in.Reason]++
					}
				}
				s.Traps += len(comp.Traps)
				s.Eliminations += len(comp.Eliminations)
				s.Intrinsics += len(comp.Intrinsics)
			}
		}
	}

	for reason, count := range failReasons {
		s.TopInlineFailReasons = append(s.TopInlineFailReasons, ReasonCount{Reason: reason, Count: count})
	}
	sort.Slice(s.TopInlineFailReasons, func(i, j int) bool {
		a, b := s.TopInlineFailReasons[i], s.TopInlineFailReasons[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Reason < b.Reason
	})
	if topReasons > 0 && len(s.TopInlineFailReasons) > topReasons {
		s.TopInlineFailReasons = s.TopInlineFailReasons[:topReasons]
	}
	return s
}
