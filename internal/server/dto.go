package server

import (
	"spycats/internal/domain"
)

// Request payloads

type CreateCatRequest struct {
	Name              string  `json:"name" minLength:"1"`
	YearsOfExperience int     `json:"years_of_experience" minimum:"0"`
	Breed             string  `json:"breed" minLength:"1"`
	Salary            float64 `json:"salary" exclusiveMinimum:"0"`
}

type UpdateSalaryRequest struct {
	Salary float64 `json:"salary" exclusiveMinimum:"0"`
}

type CreateTargetRequest struct {
	Name    string `json:"name" minLength:"1"`
	Country string `json:"country" minLength:"1"`
}

type CreateMissionRequest struct {
	CatID   *string               `json:"cat_id,omitempty"`
	Targets []CreateTargetRequest `json:"targets" minItems:"1" maxItems:"3"`
}

type UpdateTargetRequest struct {
	Notes       *string `json:"notes,omitempty"`
	IsCompleted *bool   `json:"is_completed,omitempty"`
}

// Response payloads

type CatResponse struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	YearsOfExperience int     `json:"years_of_experience"`
	Breed             string  `json:"breed"`
	Salary            float64 `json:"salary"`
	MissionID         *string `json:"mission_id,omitempty"`
	CreatedAt         string  `json:"created_at" format:"date-time"`
}

type TargetResponse struct {
	ID          string `json:"id"`
	MissionID   string `json:"mission_id"`
	Name        string `json:"name"`
	Country     string `json:"country"`
	Notes       string `json:"notes"`
	IsCompleted bool   `json:"is_completed"`
	CreatedAt   string `json:"created_at" format:"date-time"`
}

type MissionResponse struct {
	ID          string           `json:"id"`
	CatID       *string          `json:"cat_id,omitempty"`
	IsCompleted bool             `json:"is_completed"`
	Targets     []TargetResponse `json:"targets"`
	CreatedAt   string           `json:"created_at" format:"date-time"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type catList struct {
	Items []CatResponse `json:"items"`
}

type missionList struct {
	Items []MissionResponse `json:"items"`
}

// Conversion helpers

func catResponse(c domain.SpyCat) CatResponse {
	return CatResponse(c)
}

func targetResponse(t domain.Target) TargetResponse {
	return TargetResponse(t)
}

func missionResponse(m domain.Mission) MissionResponse {
	targets := make([]TargetResponse, 0, len(m.Targets))
	for _, t := range m.Targets {
		targets = append(targets, targetResponse(t))
	}
	return MissionResponse{
		ID:          m.ID,
		CatID:       m.CatID,
		IsCompleted: m.IsCompleted,
		Targets:     targets,
		CreatedAt:   m.CreatedAt,
	}
}
