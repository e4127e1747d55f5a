package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nandanugg/route-guardian/module/core/domain"
)

// HighUrgencyDistance is the deviation distance at which an off-route user
// is treated as high urgency during the day.
const HighUrgencyDistance = 150.0

var timeLabels = map[domain.TimeOfDay]string{
	domain.Dawn:      "이른 아침",
	domain.Morning:   "오전",
	domain.Afternoon: "오후",
	domain.Evening:   "저녁",
	domain.Night:     "밤",
}

var urgencyLabels = map[domain.UrgencyLevel]string{
	domain.UrgencyLow:      "🟢 낮음",
	domain.UrgencyMedium:   "🟡 보통",
	domain.UrgencyHigh:     "🟠 높음",
	domain.UrgencyCritical: "🔴 긴급",
}

// IsLateNight reports whether now falls in [22:00, 06:00).
func IsLateNight(now time.Time) bool {
	h := now.Hour()
	return h >= 22 || h < 6
}

func ClassifyTimeOfDay(now time.Time) domain.TimeOfDay {
	switch h := now.Hour(); {
	case h >= 5 && h < 7:
		return domain.Dawn
	case h >= 7 && h < 12:
		return domain.Morning
	case h >= 12 && h < 18:
		return domain.Afternoon
	case h >= 18 && h < 22:
		return domain.Evening
	default:
		return domain.Night
	}
}

// ComputeUrgency classifies a snapshot. The first matching rule wins.
func ComputeUrgency(snap domain.NavigationSnapshot, now time.Time) domain.UrgencyLevel {
	late := IsLateNight(now)
	dev := snap.Deviation

	switch {
	case dev.IsDeviated && late:
		return domain.UrgencyCritical
	case dev.IsDeviated && dev.DistanceMeters >= HighUrgencyDistance:
		return domain.UrgencyHigh
	case dev.IsDeviated:
		return domain.UrgencyMedium
	case snap.IsNavigating && late:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}

// BuildContextSummary renders the situation as newline-separated lines for
// the assistant's prompt. weather may be nil.
func BuildContextSummary(snap domain.NavigationSnapshot, weather *domain.Weather, now time.Time) domain.ContextSummary {
	tod := ClassifyTimeOfDay(now)
	late := IsLateNight(now)
	urgency := ComputeUrgency(snap, now)

	parts := []string{
		fmt.Sprintf("현재 시각: %s %d시 %d분", timeLabels[tod], now.Hour(), now.Minute()),
	}

	var weatherNote string
	if weather != nil && weather.Condition != "" {
		weatherNote = "날씨: " + weather.Condition
		if weather.TempC != nil {
			weatherNote += fmt.Sprintf(" (%s°C)", strconv.FormatFloat(*weather.TempC, 'f', -1, 64))
		}
		parts = append(parts, weatherNote)
	}

	if loc := snap.CurrentLocation; loc != nil {
		parts = append(parts, fmt.Sprintf("위치: (%.4f, %.4f)", loc.Lat, loc.Lon))
	}

	if snap.IsNavigating {
		dest := snap.Destination
		if dest == "" {
			dest = "목적지 미정"
		}
		parts = append(parts, "이동 중 → "+dest)
		if snap.CurrentStep != "" {
			parts = append(parts, "현재: "+snap.CurrentStep)
		}
	} else {
		parts = append(parts, "이동 안내 없음 (대기 중)")
	}

	if snap.Deviation.IsDeviated {
		parts = append(parts, fmt.Sprintf("⚠️ 경로 이탈 %dm", int(math.Round(snap.Deviation.DistanceMeters))))
	}

	parts = append(parts, "긴급도: "+urgencyLabels[urgency])

	if late {
		parts = append(parts, "⚠️ 야간 이동 중 — 보호자 알림 권장")
	}

	return domain.ContextSummary{
		Urgency:     urgency,
		Summary:     strings.Join(parts, "\n"),
		TimeOfDay:   tod,
		IsLateNight: late,
		WeatherNote: weatherNote,
	}
}

// AIContextPrefix wraps a summary for appending to the assistant's system prompt.
func AIContextPrefix(summary domain.ContextSummary) string {
	lines := []string{"", "[상황 인식 정보]", summary.Summary}

	switch summary.Urgency {
	case domain.UrgencyCritical:
		lines = append(lines, "🚨 긴급 상황! 사용자를 안심시키고, 보호자 연락 또는 119 신고를 안내하세요.")
	case domain.UrgencyHigh:
		lines = append(lines, "⚠️ 주의! 사용자가 많이 이탈했어요. 원래 경로 복귀를 도와주세요.")
	}

	return strings.Join(lines, "\n")
}
