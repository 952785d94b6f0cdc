package streak

import (
	"time"

	"github.com/alem-hub/learning-streak/pkg/timeutil"
)

// HistoryCap — максимальное количество записей в истории активности.
// При переполнении самая старая запись вытесняется (FIFO).
const HistoryCap = 90

// ══════════════════════════════════════════════════════════════════════════════
// TRANSITIONS
// ══════════════════════════════════════════════════════════════════════════════

// Transition описывает результат оценки серии за день.
type Transition int

const (
	// TransitionNone - день уже засчитан, состояние не изменилось.
	TransitionNone Transition = iota
	// TransitionStarted - первая активность, серия началась с 1.
	TransitionStarted
	// TransitionContinued - активность на следующий день, серия выросла.
	TransitionContinued
	// TransitionReset - пропущены дни, серия началась заново с 1.
	TransitionReset
)

// String возвращает строковое представление перехода.
func (t Transition) String() string {
	switch t {
	case TransitionNone:
		return "none"
	case TransitionStarted:
		return "started"
	case TransitionContinued:
		return "continued"
	case TransitionReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Credits возвращает true, если переход засчитал новый день серии.
func (t Transition) Credits() bool {
	return t == TransitionStarted || t == TransitionContinued || t == TransitionReset
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORD (Состояние серии)
// ══════════════════════════════════════════════════════════════════════════════

// DayRecord представляет один день учебной активности.
// На каждую календарную дату существует не более одной записи.
type DayRecord struct {
	// Date - дата активности (начало дня).
	Date time.Time

	// Duration - суммарное время обучения за день в минутах.
	Duration int

	// LessonsCompleted - количество завершённых уроков за день.
	LessonsCompleted int
}

// Record представляет полное состояние серии обучения пользователя.
type Record struct {
	// UserID - идентификатор пользователя.
	UserID string

	// CurrentStreak - текущая серия дней подряд.
	CurrentStreak int

	// LongestStreak - лучшая серия за всё время. Никогда не меньше CurrentStreak.
	LongestStreak int

	// LastActivityDate - дата последней засчитанной активности.
	// Нулевое время означает, что активности ещё не было.
	LastActivityDate time.Time

	// StreakStartDate - дата начала текущей серии.
	StreakStartDate time.Time

	// History - история дней активности (от старых к новым, не более HistoryCap).
	History []DayRecord
}

// NewRecord создаёт пустое состояние серии для пользователя.
func NewRecord(userID string) *Record {
	return &Record{
		UserID:  userID,
		History: make([]DayRecord, 0),
	}
}

// TotalLearningDays возвращает количество дней обучения в истории.
func (r *Record) TotalLearningDays() int {
	return len(r.History)
}

// Evaluate оценивает серию относительно даты today и применяет переход:
//
//   - первая активность: серия = 1, начало серии = today;
//   - тот же день, что LastActivityDate: ничего не меняется (идемпотентность);
//   - следующий день: серия увеличивается на 1;
//   - пропуск одного и более дней: серия = 1, начало серии = today,
//     история при этом сохраняется.
//
// Даты в прошлом относительно LastActivityDate игнорируются.
// После любого перехода LongestStreak >= CurrentStreak.
func (r *Record) Evaluate(today time.Time) Transition {
	day := timeutil.StartOfDay(today)

	if r.LastActivityDate.IsZero() {
		if r.CurrentStreak < 1 {
			r.CurrentStreak = 1
		}
		if r.StreakStartDate.IsZero() {
			r.StreakStartDate = day
		}
		r.LastActivityDate = day
		r.appendDay(day)
		r.bumpLongest()
		return TransitionStarted
	}

	if timeutil.IsSameDay(r.LastActivityDate, day) {
		return TransitionNone
	}

	if day.Before(timeutil.StartOfDay(r.LastActivityDate)) {
		// Часы ушли назад - не откатываем серию.
		return TransitionNone
	}

	if timeutil.IsConsecutiveDay(r.LastActivityDate, day) {
		r.CurrentStreak++
		r.LastActivityDate = day
		r.appendDay(day)
		r.bumpLongest()
		return TransitionContinued
	}

	// Пропущены дни - серия начинается заново, история не очищается.
	r.CurrentStreak = 1
	r.StreakStartDate = day
	r.LastActivityDate = day
	r.appendDay(day)
	r.bumpLongest()
	return TransitionReset
}

// RecordActivity засчитывает день (через Evaluate) и добавляет объём
// активности к записи за today. Повторные вызовы в течение одного дня
// не меняют серию, но накапливают Duration и LessonsCompleted.
func (r *Record) RecordActivity(today time.Time, durationMinutes, lessonsCompleted int) Transition {
	t := r.Evaluate(today)

	day := timeutil.StartOfDay(today)
	for i := len(r.History) - 1; i >= 0; i-- {
		if timeutil.IsSameDay(r.History[i].Date, day) {
			r.History[i].Duration += durationMinutes
			r.History[i].LessonsCompleted += lessonsCompleted
			break
		}
	}

	return t
}

// Reset полностью обнуляет серию и историю пользователя.
func (r *Record) Reset() {
	r.CurrentStreak = 0
	r.LongestStreak = 0
	r.LastActivityDate = time.Time{}
	r.StreakStartDate = time.Time{}
	r.History = make([]DayRecord, 0)
}

// appendDay добавляет запись за день в конец истории,
// вытесняя самую старую при переполнении.
func (r *Record) appendDay(day time.Time) {
	if n := len(r.History); n > 0 && timeutil.IsSameDay(r.History[n-1].Date, day) {
		return
	}

	r.History = append(r.History, DayRecord{Date: day})

	if len(r.History) > HistoryCap {
		r.History = append(r.History[:0:0], r.History[len(r.History)-HistoryCap:]...)
	}
}

// bumpLongest поддерживает инвариант LongestStreak >= CurrentStreak.
func (r *Record) bumpLongest() {
	if r.CurrentStreak > r.LongestStreak {
		r.LongestStreak = r.CurrentStreak
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DERIVED VIEWS (Производные представления)
// ══════════════════════════════════════════════════════════════════════════════

// Stats представляет сводку по серии для отображения пользователю.
type Stats struct {
	// CurrentStreak - текущая серия дней.
	CurrentStreak int

	// LongestStreak - лучшая серия за всё время.
	LongestStreak int

	// TotalLearningDays - всего дней обучения в истории.
	TotalLearningDays int

	// LastActivityDate - дата последней активности (нулевое время = не было).
	LastActivityDate time.Time

	// StreakStartDate - дата начала текущей серии.
	StreakStartDate time.Time

	// LearnedToday - была ли активность сегодня.
	LearnedToday bool

	// History - полная история дней активности (копия).
	History []DayRecord
}

// Stats возвращает сводку по серии относительно даты today.
func (r *Record) Stats(today time.Time) Stats {
	history := make([]DayRecord, len(r.History))
	copy(history, r.History)

	return Stats{
		CurrentStreak:     r.CurrentStreak,
		LongestStreak:     r.LongestStreak,
		TotalLearningDays: r.TotalLearningDays(),
		LastActivityDate:  r.LastActivityDate,
		StreakStartDate:   r.StreakStartDate,
		LearnedToday:      !r.LastActivityDate.IsZero() && timeutil.IsSameDay(r.LastActivityDate, today),
		History:           history,
	}
}

// WeekDay представляет один день недельного паттерна.
type WeekDay struct {
	// Date - дата дня.
	Date time.Time

	// Learned - была ли активность в этот день.
	Learned bool

	// Duration - время обучения в минутах (0, если активности не было).
	Duration int

	// LessonsCompleted - завершено уроков (0, если активности не было).
	LessonsCompleted int
}

// WeeklyPattern возвращает паттерн активности за 7 дней,
// заканчивающихся today, от старых дней к новым.
func (r *Record) WeeklyPattern(today time.Time) []WeekDay {
	day := timeutil.StartOfDay(today)

	pattern := make([]WeekDay, 0, 7)
	for offset := 6; offset >= 0; offset-- {
		d := day.AddDate(0, 0, -offset)
		wd := WeekDay{Date: d}

		for i := len(r.History) - 1; i >= 0; i-- {
			if timeutil.IsSameDay(r.History[i].Date, d) {
				wd.Learned = true
				wd.Duration = r.History[i].Duration
				wd.LessonsCompleted = r.History[i].LessonsCompleted
				break
			}
		}

		pattern = append(pattern, wd)
	}

	return pattern
}

// AtRisk возвращает true, если серия сломается без активности в день asOf:
// последняя активность была ровно вчера относительно asOf.
func (r *Record) AtRisk(asOf time.Time) bool {
	if r.LastActivityDate.IsZero() || r.CurrentStreak == 0 {
		return false
	}
	return timeutil.IsConsecutiveDay(r.LastActivityDate, asOf)
}
