package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"taskcolab/internal/models"
	"taskcolab/internal/store"
)

// Join codes avoid lookalike characters (no I/L/O/0/1).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
const codeLength = 6

// maxCodeAttempts bounds the generate-check-retry loop so a pathological
// collision streak cannot spin forever.
const maxCodeAttempts = 100

type RoomService struct {
	store store.Store
}

func NewRoomService(s store.Store) *RoomService {
	return &RoomService{store: s}
}

// CreateRoom creates a room with the caller as its sole member and a fresh
// join code. Code uniqueness is generate-check-retry: each candidate is
// looked up and regenerated on collision. The check and the insert are not
// atomic, so two concurrent creators can in principle race to the same
// code; that is a documented limitation, not defended further.
func (s *RoomService) CreateRoom(ctx context.Context, req *models.CreateRoomRequest, uid string) (*models.Room, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("room name is required")
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.CreateRoom(ctx, name, code, uid)
}

// JoinRoom adds the caller to the room matching code. Joining a room you
// are already in is a no-op success.
func (s *RoomService) JoinRoom(ctx context.Context, req *models.JoinRoomRequest, uid string) (*models.Room, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, fmt.Errorf("room code is required")
	}

	room, err := s.store.GetRoomByCode(ctx, code)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("room code not found")
		}
		return nil, err
	}

	for _, m := range room.Members {
		if m == uid {
			return room, nil
		}
	}

	if err := s.store.AddMember(ctx, room.ID, uid); err != nil {
		return nil, err
	}
	return s.store.GetRoomByID(ctx, room.ID)
}

func (s *RoomService) ListRooms(ctx context.Context, uid string) ([]models.Room, error) {
	return s.store.ListRoomsForUser(ctx, uid)
}

func (s *RoomService) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	return s.store.GetRoomByID(ctx, roomID)
}

// RoomDetail loads the room plus the member profiles. A member whose user
// document is gone still shows up with a bare uid.
func (s *RoomService) RoomDetail(ctx context.Context, roomID string) (*models.RoomDetail, error) {
	room, err := s.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	members := make([]models.User, 0, len(room.Members))
	for _, uid := range room.Members {
		user, err := s.store.GetUserByID(ctx, uid)
		if err != nil {
			if store.IsNotFound(err) {
				members = append(members, models.User{UID: uid})
				continue
			}
			return nil, err
		}
		user.PasswordHash = ""
		members = append(members, *user)
	}

	return &models.RoomDetail{Room: *room, Members: members}, nil
}

// IsMember reports whether uid belongs to the room.
func (s *RoomService) IsMember(ctx context.Context, roomID, uid string) (bool, error) {
	room, err := s.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return false, err
	}
	for _, m := range room.Members {
		if m == uid {
			return true, nil
		}
	}
	return false, nil
}

func (s *RoomService) uniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := generateCode()
		_, err := s.store.GetRoomByCode(ctx, code)
		if store.IsNotFound(err) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
		// Code taken, try another.
	}
	return "", fmt.Errorf("could not generate a unique room code")
}

func generateCode() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return string(b)
}
