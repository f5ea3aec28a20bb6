package keyword

var (
	TotalHttpRequestsMetricName    = "feed_http_requests_total"
	TotalHttpResponsesMetricName   = "feed_http_responses_total"
	HttpResponseStatusesMetricName = "feed_http_response_statuses"
	HttpResponseTimeMsMetricName   = "feed_http_response_time_ms"

	Loads              = "feed_loads_total"           // {edge="top|bottom"}
	LoadDuplicates     = "feed_load_duplicates_total" // ignored triggers while loading
	LoadFailures       = "feed_load_failures_total"
	TrimmedItems       = "feed_trimmed_items_total"
	ConfigErrors       = "feed_config_errors_total"
	ScrollCorrections  = "feed_scroll_corrections_total"
	RestoreRetries     = "feed_scroll_restore_retries_total"
	RestoreFailures    = "feed_scroll_restore_failures_total"
	PollAppends        = "feed_poll_appends_total"
	PollSkipped        = "feed_poll_skipped_total"
	DroppedInputs      = "feed_dropped_inputs_total"
	BufferLength       = "feed_buffer_length"
	AssetRequests      = "feed_asset_requests_total" // {status="..."}
	AssetCacheHits     = "feed_asset_cache_hits_total"
	AssetCacheMisses   = "feed_asset_cache_misses_total"
	SnapshotsDelivered = "feed_snapshots_delivered_total"
	SnapshotsDropped   = "feed_snapshots_dropped_total"
)
