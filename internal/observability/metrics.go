package observability

const (
	MUsecaseRequests MetricKey = "usecase_requests_total"
	MUsecaseDuration MetricKey = "usecase_duration_seconds"

	MOutboxPublishSuccess MetricKey = "outbox_publish_success_total"
	MOutboxPublishFailed  MetricKey = "outbox_publish_failed_total"
	MOutboxQuarantined    MetricKey = "outbox_quarantined_total"
	MCrawlDuration        MetricKey = "outbox_crawl_duration_seconds"
	MCrawlBatchSize       MetricKey = "outbox_crawl_batch_size"
)
