package entities

import (
	"math"
	"strings"

	"github.com/zatekoja/coachpackets/pkg/utils"
)

// Defaults applied when intake answers leave a field empty
const (
	DefaultWeightLb      = 150.0
	DefaultHeightIn      = 66.0
	DefaultAge           = 30
	DefaultActivityLevel = "moderately-active"
)

// ClientProfile is a client's intake data normalized for calculation and
// rendering. Missing numeric fields carry the package defaults.
type ClientProfile struct {
	ClientID            string
	Name                string
	Email               string
	Classification      Classification
	Age                 int
	Gender              string
	WeightLb            float64
	HeightIn            float64
	ActivityLevel       string
	Goal                string
	ExperienceLevel     string
	TrainingDays        int
	Sport               string
	Season              string
	Focus               []string
	RecoveryGoals       string
	Injury              string
	DietaryRestrictions string
	Answers             map[string]interface{}
}

var profileAliases = map[string][]string{
	"weight":               {"weight", "weight_lb", "weightLb"},
	"height":               {"height", "height_in", "heightIn"},
	"age":                  {"age"},
	"gender":               {"gender", "sex"},
	"activity_level":       {"activity_level", "activityLevel"},
	"goal":                 {"goal", "primary_goal", "primaryGoal"},
	"experience_level":     {"experience_level", "experienceLevel"},
	"training_days":        {"training_days", "trainingDays"},
	"sport":                {"sport"},
	"season":               {"season", "season_phase"},
	"focus":                {"focus"},
	"recovery_goals":       {"recovery_goals", "recoveryGoals"},
	"injury":               {"injury", "condition"},
	"dietary_restrictions": {"dietary_restrictions", "dietaryRestrictions"},
}

func lookup(client *Client, field string) (interface{}, bool) {
	for _, key := range profileAliases[field] {
		if v, ok := client.Attribute(key); ok {
			if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
				continue
			}
			return v, true
		}
	}
	return nil, false
}

func lookupString(client *Client, field string) string {
	v, ok := lookup(client, field)
	if !ok {
		return ""
	}
	return strings.TrimSpace(utils.AsString(v))
}

func lookupFloat(client *Client, field string, def float64) float64 {
	v, ok := lookup(client, field)
	if !ok {
		return def
	}
	f, ok := utils.AsFloat(v)
	if !ok || f <= 0 {
		return def
	}
	return f
}

// NewClientProfile normalizes a client's attributes and answers
func NewClientProfile(client *Client) *ClientProfile {
	p := &ClientProfile{
		ClientID:            client.ID,
		Name:                client.Name,
		Email:               client.Email,
		Classification:      client.Classification,
		Age:                 int(math.Round(lookupFloat(client, "age", DefaultAge))),
		Gender:              strings.ToLower(lookupString(client, "gender")),
		WeightLb:            lookupFloat(client, "weight", DefaultWeightLb),
		HeightIn:            lookupFloat(client, "height", DefaultHeightIn),
		ActivityLevel:       lookupString(client, "activity_level"),
		Goal:                lookupString(client, "goal"),
		ExperienceLevel:     strings.ToLower(lookupString(client, "experience_level")),
		TrainingDays:        int(math.Round(lookupFloat(client, "training_days", 0))),
		Sport:               lookupString(client, "sport"),
		Season:              lookupString(client, "season"),
		RecoveryGoals:       lookupString(client, "recovery_goals"),
		Injury:              lookupString(client, "injury"),
		DietaryRestrictions: lookupString(client, "dietary_restrictions"),
		Answers:             client.Answers,
	}
	if p.ActivityLevel == "" {
		p.ActivityLevel = DefaultActivityLevel
	}
	if v, ok := lookup(client, "focus"); ok {
		if items, isList := utils.AsStringSlice(v); isList {
			p.Focus = items
		}
	}
	if p.Answers == nil {
		p.Answers = map[string]interface{}{}
	}
	return p
}

// FirstName returns the first word of the client's name
func (p *ClientProfile) FirstName() string {
	if fields := strings.Fields(p.Name); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// IsMale reports whether the Mifflin-St Jeor male constant applies
func (p *ClientProfile) IsMale() bool {
	return p.Gender == "male" || p.Gender == "m"
}

// Fields returns the profile as the "client" root of a template context
func (p *ClientProfile) Fields() map[string]interface{} {
	focus := make([]interface{}, len(p.Focus))
	for i, f := range p.Focus {
		focus[i] = f
	}
	return map[string]interface{}{
		"id":                   p.ClientID,
		"name":                 p.Name,
		"first_name":           p.FirstName(),
		"email":                p.Email,
		"classification":       string(p.Classification),
		"age":                  p.Age,
		"gender":               p.Gender,
		"weight":               p.WeightLb,
		"height":               p.HeightIn,
		"activity_level":       p.ActivityLevel,
		"goal":                 p.Goal,
		"experience_level":     p.ExperienceLevel,
		"training_days":        p.TrainingDays,
		"sport":                p.Sport,
		"season":               p.Season,
		"focus":                focus,
		"recovery_goals":       p.RecoveryGoals,
		"injury":               p.Injury,
		"dietary_restrictions": p.DietaryRestrictions,
	}
}
