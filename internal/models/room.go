package models

// RoomType classifies instructional spaces.
type RoomType string

const (
	RoomTypeClassroom   RoomType = "CLASSROOM"
	RoomTypeScienceLab  RoomType = "SCIENCE_LAB"
	RoomTypeComputerLab RoomType = "COMPUTER_LAB"
	RoomTypeGym         RoomType = "GYM"
	RoomTypeArtStudio   RoomType = "ART_STUDIO"
	RoomTypeMusicRoom   RoomType = "MUSIC_ROOM"
	RoomTypeCafeteria   RoomType = "CAFETERIA"
)

// Room is a schedulable space with capacity, equipment, and blocked windows.
type Room struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Type        RoomType     `json:"type"`
	Capacity    int          `json:"capacity"`
	Equipment   []string     `json:"equipment,omitempty"`
	Unavailable []TimeWindow `json:"unavailable,omitempty"`
}

// HasEquipment reports whether the room carries every requested tag.
func (r Room) HasEquipment(tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	have := make(map[string]bool, len(r.Equipment))
	for _, tag := range r.Equipment {
		have[tag] = true
	}
	for _, tag := range tags {
		if !have[tag] {
			return false
		}
	}
	return true
}
