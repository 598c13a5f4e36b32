package queue

// Kind selects one of the two independent queue kinds.
type Kind int

const (
	// KindDungeons is cooperative instanced content (wire value 0).
	KindDungeons Kind = iota
	// KindBattlegrounds is the versus mode (wire value 1).
	KindBattlegrounds
)

func (k Kind) String() string {
	if k == KindBattlegrounds {
		return "battlegrounds"
	}
	return "dungeons"
}

// KindFromWire maps the telemetry "type" field to a Kind.
func KindFromWire(v int) (Kind, bool) {
	switch v {
	case 0:
		return KindDungeons, true
	case 1:
		return KindBattlegrounds, true
	}
	return 0, false
}

// KindFromPath maps a URL path segment to a Kind.
func KindFromPath(s string) (Kind, bool) {
	switch s {
	case "dungeons":
		return KindDungeons, true
	case "battlegrounds":
		return KindBattlegrounds, true
	}
	return 0, false
}
