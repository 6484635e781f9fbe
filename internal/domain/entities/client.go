package entities

import "time"

// Classification is the client's program category. It drives packet routing.
type Classification string

const (
	ClassificationNutritionOnly      Classification = "NUTRITION_ONLY"
	ClassificationWorkoutOnly        Classification = "WORKOUT_ONLY"
	ClassificationFullProgram        Classification = "FULL_PROGRAM"
	ClassificationAthletePerformance Classification = "ATHLETE_PERFORMANCE"
	ClassificationYouthAthlete       Classification = "YOUTH_ATHLETE"
	ClassificationGeneralWellness    Classification = "GENERAL_WELLNESS"
	ClassificationSpecialSituation   Classification = "SPECIAL_SITUATION"
)

// Client represents one coached individual
type Client struct {
	ID             string                 `json:"id" db:"id"`
	OwnerID        string                 `json:"owner_id" db:"owner_id"`
	Name           string                 `json:"name" db:"name"`
	Email          string                 `json:"email" db:"email"`
	Phone          string                 `json:"phone" db:"phone"`
	Classification Classification         `json:"classification" db:"classification"`
	Attributes     map[string]interface{} `json:"attributes" db:"attributes"`
	Answers        map[string]interface{} `json:"answers" db:"answers"`
	CreatedAt      time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at" db:"updated_at"`
}

// Attribute looks a field up in the normalized attributes first, then in the
// raw intake answers.
func (c *Client) Attribute(key string) (interface{}, bool) {
	if c == nil {
		return nil, false
	}
	if v, ok := c.Attributes[key]; ok && v != nil {
		return v, true
	}
	if v, ok := c.Answers[key]; ok && v != nil {
		return v, true
	}
	return nil, false
}
