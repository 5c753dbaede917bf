package gemini

// selectionMode discriminates the two model-selection states.
type selectionMode int

const (
	modeAuto selectionMode = iota
	modeManual
)

// selection is the model-selection state machine: either a cursor into
// the rotation list (auto) or an explicit pinned model name (manual).
// A manual pin is one-shot: it survives until it succeeds once or fails
// once, whichever comes first.
type selection struct {
	manual string
	cursor int
	mode   selectionMode
}

// active returns the model the next request should use.
func (s selection) active(rotation []string) string {
	if s.mode == modeManual {
		return s.manual
	}
	if len(rotation) == 0 {
		return ""
	}
	return rotation[s.cursor%len(rotation)]
}

// pinName selects a model outside the rotation list.
func (s selection) pinName(name string) selection {
	return selection{mode: modeManual, manual: name, cursor: s.cursor}
}

// pinIndex selects a rotation entry by index.
func (s selection) pinIndex(i int) selection {
	return selection{mode: modeAuto, cursor: i}
}

// onQuota advances past a quota-exhausted model. A manual pin is
// sacrificed first: the pin clears and rotation resumes at the next
// cursor step.
func (s selection) onQuota(rotationLen int) selection {
	if rotationLen == 0 {
		return selection{}
	}
	return selection{mode: modeAuto, cursor: (s.cursor + 1) % rotationLen}
}

// onSuccess clears a manual pin after a successful forced call.
func (s selection) onSuccess() selection {
	if s.mode == modeManual {
		return selection{mode: modeAuto, cursor: s.cursor}
	}
	return s
}
