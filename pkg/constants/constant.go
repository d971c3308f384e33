package constants

const (
	DataFormate = "2006-01-02 15:04:05"

	// 单个事务内最多写入的文档数, 同时也是修复任务分页大小
	MaxWritesPerBatch = 500

	MaxHashtags       = 10
	MaxPreviewRunes   = 100
	MaxRedeliveries   = 5
	EventDedupeTTLSec = 24 * 60 * 60

	ApiServiceName       = "FoodTok.Api"
	TriggerServiceName   = "FoodTok.Trigger"
	ReconcileServiceName = "FoodTok.Reconcile"
	MigrateServiceName   = "FoodTok.Migrate"

	IdentityKey = "uid"

	NotificationChannelPrefix = "user_notifications:"
	EventDedupeKeyPrefix      = "trigger:event:"
	SweepLockKey              = "reconcile:sweep:lock"
)
