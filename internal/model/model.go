package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&ScannerInfo{},
	&ScanSession{},
	&CaptureRecord{},
	&ScannerPerformance{},
}

// DatabaseModelsSQLite mirrors DatabaseModels; the journal schema has no
// postgres-only column types.
var DatabaseModelsSQLite = []interface{}{
	&ScannerInfo{},
	&ScanSession{},
	&CaptureRecord{},
	&ScannerPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// ScannerInfo contains information about the scanner station instance
type ScannerInfo struct {
	gorm.Model
	StationName string `json:"stationName" gorm:"size:127"`
	Location    string `json:"location" gorm:"size:255"`
}

func (*ScannerInfo) TableName() string {
	return "scanner_infos"
}

// ScannerPerformance is the model for scanner runtime performance metrics
type ScannerPerformance struct {
	Time            time.Time `json:"time" gorm:"type:timestamptz;index:idx_time"`
	ScanSessionID   uint      `json:"scanSessionId" gorm:"index:idx_scannerperformance_session_id"`
	ScanSession     ScanSession `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ScanSessionID;"`
	FramesDelivered uint64    `json:"framesDelivered"`
	FramesDropped   uint64    `json:"framesDropped"`
	TicksProcessed  uint64    `json:"ticksProcessed"`
	TicksSkipped    uint64    `json:"ticksSkipped"`
	LastTickMs      float32   `json:"lastTickMs"`
	LockPhase       string    `json:"lockPhase" gorm:"size:16"`
	DetectionMetric float64   `json:"detectionMetric"`
}

func (*ScannerPerformance) TableName() string {
	return "scanner_performances"
}

////////////////////////
// DOMAIN MODELS
////////////////////////

// ScanSession is one scanning visit, keyed by the backend-minted identifier.
type ScanSession struct {
	gorm.Model
	SessionID    string       `json:"sessionId" gorm:"size:127;uniqueIndex"`
	StartedAt    time.Time    `json:"startedAt"`
	FinishedAt   sql.NullTime `json:"finishedAt"`
	CaptureCount uint         `json:"captureCount"`
	SuccessCount uint         `json:"successCount"`
}

func (*ScanSession) TableName() string {
	return "scan_sessions"
}

// CaptureRecord journals one resolved capture attempt.
type CaptureRecord struct {
	gorm.Model
	ScanSessionID uint        `json:"scanSessionId" gorm:"index:idx_capturerecord_session_id"`
	ScanSession   ScanSession `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ScanSessionID;"`
	AttemptID     string      `json:"attemptId" gorm:"size:64;index"`
	FrameSeq      uint64      `json:"frameSeq"`
	CapturedAt    time.Time   `json:"capturedAt"`
	Status        string      `json:"status" gorm:"size:16"`
	Reason        string      `json:"reason" gorm:"size:255"`
	HTTPStatus    int         `json:"httpStatus"`
	DurationMs    float32     `json:"durationMs"`
	Timeout       bool        `json:"timeout"`
	ImageBytes    int         `json:"imageBytes"`
	// Response keeps the backend's raw reply for later inspection.
	Response datatypes.JSON `json:"response"`
}

func (*CaptureRecord) TableName() string {
	return "capture_records"
}
