package domain

// RoomName identifies a room. Free-form and case-sensitive; the directory
// imposes no charset or length rules of its own.
type RoomName string

type Room struct {
	Name RoomName
}
