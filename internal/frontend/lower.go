package frontend

import "fmt"

// Stage identifies a front-end lowering stage. The stages are strictly
// ordered and not individually selectable; the driver may only stop
// after a prefix of them.
type Stage int

const (
	StageModules Stage = 1 + iota
	StageMono
	StageLift
	StageDefunc
)

// NumStages is the number of lowering stages.
const NumStages = 4

func (s Stage) String() string {
	switch s {
	case StageModules:
		return "module evaluation"
	case StageMono:
		return "monomorphisation"
	case StageLift:
		return "lambda lifting"
	case StageDefunc:
		return "defunctionalisation"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Lower runs the lowering stages in order, stopping after upTo. The name
// source is threaded through every stage and returned; each stage is
// deterministic given the same input and counter start.
func Lower(p *Prog, upTo Stage, src NameSource) (*Prog, NameSource, error) {
	stages := []struct {
		stage Stage
		fn    func(*Prog, NameSource) (*Prog, NameSource, error)
	}{
		{StageModules, EvalModules},
		{StageMono, Monomorphise},
		{StageLift, LiftLambdas},
		{StageDefunc, Defunctionalise},
	}

	var err error
	for _, st := range stages {
		if st.stage > upTo {
			break
		}
		p, src, err = st.fn(p, src)
		if err != nil {
			return nil, src, fmt.Errorf("%s: %w", st.stage, err)
		}
	}
	return p, src, nil
}
