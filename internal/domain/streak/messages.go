package streak

import (
	"fmt"
	"math/rand"

	"github.com/alem-hub/learning-streak/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MOTIVATIONAL MESSAGES (Мотивационные сообщения)
// ══════════════════════════════════════════════════════════════════════════════

// Milestones — цели серии по возрастанию. Достижение любой из них
// считается событием, достойным уведомления.
var Milestones = []int{7, 14, 21, 30, 50, 100}

// milestoneMessages — сообщения для точных значений серии.
var milestoneMessages = map[int]string{
	1:   "Отличное начало! Первый день обучения позади 🎯",
	2:   "Два дня подряд! Продолжай в том же духе 💪",
	3:   "Три дня подряд — привычка начинает формироваться 🌱",
	5:   "Пять дней подряд! Ты набираешь обороты 🚀",
	7:   "Целая неделя обучения без пропусков! 🔥",
	14:  "Две недели подряд! Это уже серьёзно 🏅",
	21:  "21 день — говорят, именно столько нужно для привычки ✨",
	30:  "Месяц ежедневного обучения! Железная воля 💪",
	50:  "50 дней подряд! Ты в элите самых упорных 🏆",
	100: "100 дней подряд! Легенда 🌟",
}

// genericMessages — общий пул подбадривающих сообщений для серий,
// не попавших ни в таблицу, ни в отсчёт до цели.
var genericMessages = []string{
	"Каждый день обучения приближает тебя к цели 📚",
	"Стабильность — признак мастерства. Так держать!",
	"Твоя серия впечатляет. Не останавливайся 🔥",
	"Ещё один день знаний в копилку 🧠",
	"Ты учишься каждый день — это дорогого стоит 💎",
}

// startMessage показывается, когда серии ещё нет.
const startMessage = "Начни учиться сегодня, чтобы запустить серию 🚀"

// MessageFor возвращает мотивационное сообщение для текущей серии:
//
//   - серия 0: приглашение начать;
//   - точное совпадение с таблицей: сообщение вехи;
//   - иначе, если впереди есть цель: отсчёт дней до неё;
//   - иначе: случайное сообщение из общего пула (rng инжектируется
//     для детерминированных тестов).
func MessageFor(current int, rng *rand.Rand) string {
	if current <= 0 {
		return startMessage
	}

	if msg, ok := milestoneMessages[current]; ok {
		return msg
	}

	if next, ok := NextMilestone(current); ok {
		remaining := next - current
		verb := "осталось"
		if remaining%10 == 1 && remaining%100 != 11 {
			verb = "остался"
		}
		return fmt.Sprintf("До цели в %s %s %s! 🔥",
			timeutil.PluralDaysRu(next), verb, timeutil.PluralDaysRu(remaining))
	}

	if rng == nil {
		return genericMessages[0]
	}
	return genericMessages[rng.Intn(len(genericMessages))]
}

// NextMilestone возвращает ближайшую цель строго больше current.
func NextMilestone(current int) (int, bool) {
	for _, m := range Milestones {
		if m > current {
			return m, true
		}
	}
	return 0, false
}

// IsMilestone возвращает true, если n — одна из целей серии.
func IsMilestone(n int) bool {
	for _, m := range Milestones {
		if m == n {
			return true
		}
	}
	return false
}
