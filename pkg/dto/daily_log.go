package dto

import "github.com/posture-coach/engine/internal/models"

type DailyLogResponse struct {
	Date            string  `json:"date"`
	SecondsInGreen  int     `json:"secondsInGreen"`
	SecondsInYellow int     `json:"secondsInYellow"`
	SecondsInRed    int     `json:"secondsInRed"`
	AvgScore        float64 `json:"avgScore"`
	SampleCount     int     `json:"sampleCount"`
	MeetsGoal       bool    `json:"meetsGoal"`
}

func FromDailyLog(l models.DailyLog) DailyLogResponse {
	return DailyLogResponse{
		Date:            l.Date,
		SecondsInGreen:  l.SecondsInGreen,
		SecondsInYellow: l.SecondsInYellow,
		SecondsInRed:    l.SecondsInRed,
		AvgScore:        l.AvgScore,
		SampleCount:     l.SampleCount,
		MeetsGoal:       l.MeetsGoal,
	}
}

type StreakResponse struct {
	CurrentStreakDays int `json:"currentStreakDays"`
}
