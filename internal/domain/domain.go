package domain

import "time"

type Role string

const (
	RoleUser    Role = "user"
	RoleTrainer Role = "trainer"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleTrainer, RoleAdmin:
		return true
	}

	return false
}

type BookingStatus string

const (
	BookingStatusPending     BookingStatus = "pending"
	BookingStatusConfirmed   BookingStatus = "confirmed"
	BookingStatusCompleted   BookingStatus = "completed"
	BookingStatusCancelled   BookingStatus = "cancelled"
	BookingStatusRescheduled BookingStatus = "rescheduled"
)

type SessionMode string

const (
	SessionModeVideo SessionMode = "video"
	SessionModeAudio SessionMode = "audio"
	SessionModeChat  SessionMode = "chat"
)

func (m SessionMode) Valid() bool {
	switch m {
	case SessionModeVideo, SessionModeAudio, SessionModeChat:
		return true
	}

	return false
}

type User struct {
	Id           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	Role         Role      `json:"role" bson:"role"`
	CreateTime   time.Time `json:"createTime" bson:"createTime"`
	UpdateTime   time.Time `json:"updateTime" bson:"updateTime"`
}

type Trainer struct {
	Id              string    `json:"id" bson:"_id"`
	UserId          string    `json:"userId" bson:"userId"`
	FirstName       string    `json:"firstName" bson:"firstName"`
	LastName        string    `json:"lastName" bson:"lastName"`
	Phone           string    `json:"phone" bson:"phone"`
	Specializations []string  `json:"specializations" bson:"specializations"`
	Certifications  []string  `json:"certifications" bson:"certifications"`
	HourlyRate      float64   `json:"hourlyRate" bson:"hourlyRate"`
	Bio             string    `json:"bio" bson:"bio"`
	Experience      int       `json:"experience" bson:"experience"`
	Rating          float64   `json:"rating" bson:"rating"`
	ReviewCount     int       `json:"reviewCount" bson:"reviewCount"`
	IsVerified      bool      `json:"isVerified" bson:"isVerified"`
	CreateTime      time.Time `json:"createTime" bson:"createTime"`
}

type Booking struct {
	Id          string        `json:"id" bson:"_id"`
	UserId      string        `json:"userId" bson:"userId"`
	TrainerId   string        `json:"trainerId" bson:"trainerId"`
	ServiceType string        `json:"serviceType" bson:"serviceType"`
	ScheduledAt time.Time     `json:"scheduledAt" bson:"scheduledAt"`
	Duration    int           `json:"duration" bson:"duration"` // minutes
	Status      BookingStatus `json:"status" bson:"status"`
	SessionMode SessionMode   `json:"sessionMode" bson:"sessionMode"`
	Notes       string        `json:"notes,omitempty" bson:"notes,omitempty"`
	CreateTime  time.Time     `json:"createTime" bson:"createTime"`
}

type Feedback struct {
	Id            string    `json:"id" bson:"_id"`
	BookingId     string    `json:"bookingId" bson:"bookingId"`
	UserId        string    `json:"userId" bson:"userId"`
	Rating        int       `json:"rating" bson:"rating"`
	Review        string    `json:"review" bson:"review"`
	IsRecommended bool      `json:"isRecommended" bson:"isRecommended"`
	CreateTime    time.Time `json:"createTime" bson:"createTime"`
}
