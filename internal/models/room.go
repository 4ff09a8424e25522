package models

import "time"

// Room is a shared collaboration space. Members always includes CreatedBy;
// the join code is short, uppercase and unique across rooms (best-effort,
// see services.RoomService).
type Room struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Code      string    `bson:"code" json:"code"`
	CreatedBy string    `bson:"createdBy" json:"created_by"`
	Members   []string  `bson:"members" json:"members"`
	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}

type CreateRoomRequest struct {
	Name string `json:"name"`
}

type JoinRoomRequest struct {
	Code string `json:"code"`
}

type RoomDetail struct {
	Room    Room   `json:"room"`
	Members []User `json:"members"`
}
