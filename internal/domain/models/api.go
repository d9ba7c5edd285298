package models

// Request models for the inspection API.

type SeriesRequest struct {
	Instrument  string `query:"instrument" validate:"required,len=6,alpha"`
	Granularity string `query:"granularity" default:"1h" validate:"oneof=1m 5m 15m 30m 1h 1d"`
	Limit       int    `query:"limit" default:"10000" validate:"gte=0,lte=50000"`
}

type ReportRequest struct {
	Instrument  string `query:"instrument" validate:"required,len=6,alpha"`
	Granularity string `query:"granularity" default:"1h" validate:"oneof=1m 5m 15m 30m 1h 1d"`
}

type DatasetRequest struct {
	Instrument  string `query:"instrument" validate:"required,len=6,alpha"`
	Granularity string `query:"granularity" default:"1h" validate:"oneof=1m 5m 15m 30m 1h 1d"`
	Limit       int    `query:"limit" default:"10000" validate:"gte=0,lte=50000"`
}

type WarehouseCandlesRequest struct {
	Instrument  string `query:"instrument" validate:"required,len=6,alpha"`
	Granularity string `query:"granularity" default:"1h" validate:"oneof=1m 5m 15m 30m 1h 1d"`
	From        string `query:"from" validate:"required"`
	To          string `query:"to" validate:"required"`
}
