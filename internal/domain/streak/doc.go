// Package streak содержит доменную модель серии обучения (learning streak):
// последовательность календарных дней с зафиксированной учебной активностью.
//
// Ядро пакета — Record с методом Evaluate, который реализует машину
// состояний серии: продолжение при активности на следующий день, сброс при
// пропуске, идемпотентность в пределах одного дня. Границы дня определяются
// календарной датой (pkg/timeutil), а не прошедшими 24 часами.
//
// Пакет не имеет внешних зависимостей и не обращается к хранилищам —
// контракты персистентности (Repository, Cache, Notifier) объявлены здесь,
// а реализации живут в internal/infrastructure.
package streak
