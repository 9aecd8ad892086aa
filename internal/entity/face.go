package entity

// Face is the symbol printed on a memory card. The set is closed: anything
// outside it is rejected when cards are dealt.
type Face string

const (
	FaceHeart    Face = "Heart"
	FaceStar     Face = "Star"
	FaceMoon     Face = "Moon"
	FaceSun      Face = "Sun"
	FaceCloud    Face = "Cloud"
	FaceUmbrella Face = "Umbrella"
	FacePencil   Face = "Pencil"
	FaceCamera   Face = "Camera"
	FaceGift     Face = "Gift"
	FaceMusic    Face = "Music"
	FaceBell     Face = "Bell"
	FaceAnchor   Face = "Anchor"
	FaceAirplay  Face = "Airplay"
	FaceTrees    Face = "Trees"
	FaceCar      Face = "Car"
	FaceKey      Face = "Key"
	FaceLock     Face = "Lock"
	FaceCrown    Face = "Crown"
	FaceDiamond  Face = "Diamond"
)

var Faces = []Face{
	FaceHeart, FaceStar, FaceMoon, FaceSun, FaceCloud,
	FaceUmbrella, FacePencil, FaceCamera, FaceGift, FaceMusic,
	FaceBell, FaceAnchor, FaceAirplay, FaceTrees, FaceCar,
	FaceKey, FaceLock, FaceCrown, FaceDiamond,
}

// Palette holds the colors a pair can be painted with.
var Palette = []string{
	"#FF5733", "#33FF57", "#3357FF", "#FF33A6", "#33FFF5",
	"#F533FF", "#FF8C33", "#33FF8C", "#8C33FF", "#FFFF33",
}

func (that Face) Valid() bool {
	switch that {
	case FaceHeart, FaceStar, FaceMoon, FaceSun, FaceCloud,
		FaceUmbrella, FacePencil, FaceCamera, FaceGift, FaceMusic,
		FaceBell, FaceAnchor, FaceAirplay, FaceTrees, FaceCar,
		FaceKey, FaceLock, FaceCrown, FaceDiamond:
		return true
	default:
		return false
	}
}

// Emoji is the fallback glyph clients render for a face.
func (that Face) Emoji() string {
	switch that {
	case FaceHeart:
		return "❤️"
	case FaceStar:
		return "⭐"
	case FaceMoon:
		return "🌙"
	case FaceSun:
		return "☀️"
	case FaceCloud:
		return "☁️"
	case FaceUmbrella:
		return "☂️"
	case FacePencil:
		return "✏️"
	case FaceCamera:
		return "📷"
	case FaceGift:
		return "🎁"
	case FaceMusic:
		return "🎵"
	case FaceBell:
		return "🔔"
	case FaceAnchor:
		return "⚓"
	case FaceAirplay:
		return "📱"
	case FaceTrees:
		return "🌳"
	case FaceCar:
		return "🚗"
	case FaceKey:
		return "🔑"
	case FaceLock:
		return "🔒"
	case FaceCrown:
		return "👑"
	case FaceDiamond:
		return "💎"
	default:
		return "?"
	}
}
