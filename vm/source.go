package vm

import (
	"fmt"

	"github.com/loopvm/loopvm"
)

// FromSource turns the project form of a voice into a VoiceProgram. The
// sample tables referenced by the source are passed in already loaded, in
// the same order.
func FromSource(src *loopvm.VoiceSource, samples [][]float32) (VoiceProgram, error) {
	p := VoiceProgram{Literals: src.Literals, Samples: samples}
	if len(samples) != len(src.Samples) {
		return p, fmt.Errorf("voice %q: %d sample files, %d loaded", src.Name, len(src.Samples), len(samples))
	}
	for i, l := range src.Lists {
		list := make([]Value, len(l))
		for j, s := range l {
			v, err := ParseValue(s)
			if err != nil {
				return p, fmt.Errorf("voice %q list %d: %w", src.Name, i, err)
			}
			list[j] = v
		}
		p.Lists = append(p.Lists, list)
	}
	var err error
	if src.SetupWords != nil || src.RunWords != nil {
		p.Setup = withEnd(src.SetupWords)
		p.Run = withEnd(src.RunWords)
	} else if p.Setup, p.Run, err = AssemblePair(src.Setup, src.Run); err != nil {
		return p, fmt.Errorf("voice %q: %w", src.Name, err)
	}
	if p.Out, err = ParseValue(src.Out); err != nil {
		return p, fmt.Errorf("voice %q output: %w", src.Name, err)
	}
	if src.OutRight != "" {
		if p.OutRight, err = ParseValue(src.OutRight); err != nil {
			return p, fmt.Errorf("voice %q right output: %w", src.Name, err)
		}
	}
	return p, nil
}

// withEnd returns a copy of the words with a terminator appended. A program
// that already ends itself is unaffected by the extra word.
func withEnd(words []int32) Program {
	return append(Program(words[:len(words):len(words)]), int32(OpEnd))
}
