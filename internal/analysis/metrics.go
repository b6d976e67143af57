// SPDX-License-Identifier: MIT
package analysis

// Metrics is the per-tick feature snapshot and the only structure that
// crosses the pipeline/renderer boundary. It is a flat value type: consumers
// receive a copy and must treat it as replaced wholesale every tick. JSON
// field names match what the visualizer clients consume.
//
// Band energies and presence values lie in [0,1]. LowMid/HighMid (and their
// presence) stay zero in three-band mode. Hit booleans are one-tick edges;
// the strength companions decay smoothly and are the signals renderers
// should animate from.
type Metrics struct {
	Bass    float64 `json:"bass"`
	LowMid  float64 `json:"lowMid"`
	Mid     float64 `json:"mid"`
	HighMid float64 `json:"highMid"`
	Treble  float64 `json:"treble"`

	BassPresence    float64 `json:"bassPresence"`
	LowMidPresence  float64 `json:"lowMidPresence"`
	MidPresence     float64 `json:"midPresence"`
	HighMidPresence float64 `json:"highMidPresence"`
	TreblePresence  float64 `json:"treblePresence"`

	BassHit           bool    `json:"bassHit"`
	MidHit            bool    `json:"midHit"`
	TrebleHit         bool    `json:"trebleHit"`
	BassHitStrength   float64 `json:"bassHitStrength"`
	MidHitStrength    float64 `json:"midHitStrength"`
	TrebleHitStrength float64 `json:"trebleHitStrength"`

	Kick          bool    `json:"kick"`
	Snare         bool    `json:"snare"`
	KickStrength  float64 `json:"kickStrength"`
	SnareStrength float64 `json:"snareStrength"`

	BPM            float64 `json:"bpm"`
	BeatConfidence float64 `json:"beatConfidence"`
	BeatPhase      float64 `json:"beatPhase"`
	OnBeat         float64 `json:"onBeat"`

	LFO2  float64 `json:"lfo2"`
	LFO4  float64 `json:"lfo4"`
	LFO8  float64 `json:"lfo8"`
	Ramp2 float64 `json:"ramp2"`
	Ramp4 float64 `json:"ramp4"`
	Ramp8 float64 `json:"ramp8"`

	Volume   float64 `json:"volume"`
	Centroid float64 `json:"centroid"`
}
