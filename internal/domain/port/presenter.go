package port

import "lid-inspector/internal/domain/entity"

// Presenter получает уведомления конвейера. Вызовы не должны блокировать обработчик.
type Presenter interface {
	// OnDiscovered вызывается при постановке файла в очередь
	OnDiscovered(record entity.ImageRecord)

	// OnDecided вызывается для терминальных записей (Decided или Failed)
	OnDecided(record entity.ImageRecord)

	// OnCountersChanged вызывается после изменения счётчиков
	OnCountersChanged(counters entity.Counters)
}

// DurablePresenter презентер, которому доставляются все терминальные записи,
// даже когда его очередь переполнена (журнал вердиктов).
type DurablePresenter interface {
	Presenter

	// Durable включает гарантированную доставку OnDecided
	Durable() bool
}
