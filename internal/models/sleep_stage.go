package models

import "strings"

// SleepStage is a canonical sleep stage name.
type SleepStage string

const (
	StageCore   SleepStage = "Core"
	StageDeep   SleepStage = "Deep"
	StageREM    SleepStage = "REM"
	StageAwake  SleepStage = "Awake"
	StageInBed  SleepStage = "In Bed"
	StageAsleep SleepStage = "Asleep"
)

// stageNames maps lowercased stage names, including the localized names Apple
// Health emits on non-English devices and the "light" naming used by other
// wearables, to canonical stages.
var stageNames = map[string]SleepStage{
	"core":        StageCore,
	"light":       StageCore,
	"deep":        StageDeep,
	"rem":         StageREM,
	"awake":       StageAwake,
	"wake":        StageAwake,
	"in bed":      StageInBed,
	"inbed":       StageInBed,
	"asleep":      StageAsleep,
	"unspecified": StageAsleep,

	// de
	"kern":    StageCore,
	"tief":    StageDeep,
	"wach":    StageAwake,
	"im bett": StageInBed,

	// fr
	"paradoxal": StageREM,
	"profond":   StageDeep,
	"léger":     StageCore,
	"leger":     StageCore,
	"éveillé":   StageAwake,
	"eveille":   StageAwake,
	"au lit":    StageInBed,
	"endormi":   StageAsleep,

	// es, pt
	"profundo":      StageDeep,
	"principal":     StageCore,
	"despierto":     StageAwake,
	"despierta":     StageAwake,
	"en la cama":    StageInBed,
	"dormido":       StageAsleep,
	"dormida":       StageAsleep,
	"sono profundo": StageDeep,
	"acordado":      StageAwake,
	"acordada":      StageAwake,
	"na cama":       StageInBed,
	"dormindo":      StageAsleep,

	// it
	"profondo":     StageDeep,
	"essenziale":   StageCore,
	"sveglio":      StageAwake,
	"sveglia":      StageAwake,
	"a letto":      StageInBed,
	"addormentato": StageAsleep,

	// nl
	"diep":    StageDeep,
	"wakker":  StageAwake,
	"slapend": StageAsleep,

	// ja
	"コア":   StageCore,
	"深い":   StageDeep,
	"レム":   StageREM,
	"覚醒":   StageAwake,
	"ベッドで": StageInBed,

	// zh
	"核心":   StageCore,
	"深度":   StageDeep,
	"快速眼动": StageREM,
	"清醒":   StageAwake,
	"在床上":  StageInBed,
	"核心睡眠": StageCore,
	"深層":   StageDeep,
	"快速動眼": StageREM,

	// ko
	"코어":   StageCore,
	"깊은":   StageDeep,
	"렘":    StageREM,
	"깨어있음": StageAwake,
	"침대에서": StageInBed,
}

// NormalizeSleepStage maps a possibly-localized stage name to its canonical
// stage. The second result is false for unknown names.
func NormalizeSleepStage(raw string) (SleepStage, bool) {
	stage, ok := stageNames[strings.ToLower(strings.TrimSpace(raw))]
	return stage, ok
}

// AddStageMinutes credits minutes of the given stage to the segment's tallies.
// Asleep (unspecified) counts as light sleep; In Bed only widens the window.
func (s *SleepSegment) AddStageMinutes(stage SleepStage, minutes float64) {
	switch stage {
	case StageCore, StageAsleep:
		s.LightMinutes += minutes
	case StageDeep:
		s.DeepMinutes += minutes
	case StageREM:
		s.RemMinutes += minutes
	case StageAwake:
		s.AwakeMinutes += minutes
	}
}
