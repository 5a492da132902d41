package models

import "strings"

// Stage is a lot's position in the production workflow
type Stage string

const (
	StageGrey    Stage = "grey"
	StageProcess Stage = "process"
	StageHeat    Stage = "heat"
	StageFinish  Stage = "finish"
)

// Stages lists the workflow in order
var Stages = []Stage{StageGrey, StageProcess, StageHeat, StageFinish}

// ParseStage accepts a stage name in any case
func ParseStage(s string) (Stage, bool) {
	st := Stage(strings.ToLower(strings.TrimSpace(s)))
	return st, st.Valid()
}

// Valid reports whether s is one of the four workflow stages
func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// Index returns the position of s in Stages, -1 if unknown
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// Next returns the successor stage; false at finish or for an unknown stage
func (s Stage) Next() (Stage, bool) {
	i := s.Index()
	if i < 0 || i+1 >= len(Stages) {
		return "", false
	}
	return Stages[i+1], true
}

// After reports whether s comes strictly after o
func (s Stage) After(o Stage) bool {
	return s.Index() > o.Index() && o.Valid()
}

func (s Stage) String() string {
	return string(s)
}
