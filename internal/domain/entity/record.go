package entity

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// RecordState состояние изображения в конвейере инспекции
type RecordState string

const (
	StateDiscovered  RecordState = "discovered"  // Файл замечен наблюдателем
	StateStabilizing RecordState = "stabilizing" // Ожидание окончания записи
	StateQueued      RecordState = "queued"      // Поставлен в очередь
	StateAnalyzing   RecordState = "analyzing"   // Идёт классификация
	StateDecided     RecordState = "decided"     // Получен вердикт
	StateFailed      RecordState = "failed"      // Терминальная ошибка
)

// Terminal сообщает, является ли состояние конечным.
func (s RecordState) Terminal() bool {
	return s == StateDecided || s == StateFailed
}

// Verdict итог проверки одного изображения
type Verdict string

const (
	VerdictNone   Verdict = ""
	VerdictAccept Verdict = "ACCEPT"
	VerdictReject Verdict = "REJECT"
)

// acceptedExtensions допустимые расширения изображений.
var acceptedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

// IsImageName проверяет расширение файла по белому списку (без учёта регистра).
func IsImageName(name string) bool {
	_, ok := acceptedExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ImageRecord описывает один обнаруженный файл.
// До постановки в очередь им владеет наблюдатель, после — обработчик.
type ImageRecord struct {
	Name       string // имя файла, ключ в пределах сессии
	Path       string // полный путь
	NumericKey int64  // числовой ключ из имени (если HasNumeric)
	HasNumeric bool

	State      RecordState
	Verdict    Verdict
	Reason     string
	Confidence int      // 0..100, только для StateDecided
	Attempts   int      // число обращений к классификатору
	Epoch      uint64   // эпоха очереди на момент извлечения
	Settings   Settings // снимок настроек на момент начала анализа

	DiscoveredAt time.Time
	FinishedAt   time.Time
}

// NewImageRecord создаёт запись в состоянии Discovered.
func NewImageRecord(dir, name string, now time.Time) *ImageRecord {
	key, ok := NumericKey(name)
	return &ImageRecord{
		Name:         name,
		Path:         filepath.Join(dir, name),
		NumericKey:   key,
		HasNumeric:   ok,
		State:        StateDiscovered,
		DiscoveredAt: now,
	}
}

// NumericKey разбирает основу имени файла как неотрицательное целое.
// Принимаются только цифры: "0012.jpg" -> 12, "-1.jpg" и "1a.jpg" не числовые.
func NumericKey(name string) (int64, bool) {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if stem == "" {
		return 0, false
	}
	for _, r := range stem {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(stem, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Decide переводит запись в Decided.
func (r *ImageRecord) Decide(c Classification, at time.Time) {
	r.State = StateDecided
	r.Verdict = c.Verdict
	r.Reason = c.Reason
	r.Confidence = c.Confidence
	r.FinishedAt = at
}

// Fail переводит запись в Failed; вердикт и уверенность сбрасываются.
func (r *ImageRecord) Fail(err error, at time.Time) {
	r.State = StateFailed
	r.Verdict = VerdictNone
	r.Confidence = 0
	if err != nil {
		r.Reason = err.Error()
	}
	r.FinishedAt = at
}
