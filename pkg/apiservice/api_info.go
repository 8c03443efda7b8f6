package apiservice

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pingcap/log"
	"github.com/sparkify/dwhetl/pkg/catalog"
	"go.uber.org/zap"
)

type ServiceStatus string

const (
	ServiceStatusRunning    ServiceStatus = "running"
	ServiceStatusFinished   ServiceStatus = "finished"
	ServiceStatusFatalError ServiceStatus = "fatal_error"
)

// RunStage is the part of the run currently executing.
type RunStage string

const (
	RunStageInit      RunStage = "init"
	RunStagePreflight RunStage = "preflight"
	RunStageSchema    RunStage = "resetting-schema"
	RunStageLoad      RunStage = "loading-staging"
	RunStageTransform RunStage = "transforming"
	RunStageReport    RunStage = "reporting"
	RunStageFinished  RunStage = "finished"
)

// PhaseProgress counts the statements of one catalog list.
type PhaseProgress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Info is the snapshot served on /info.
type Info struct {
	Status        ServiceStatus                   `json:"status"`
	Stage         RunStage                        `json:"stage"`
	LastStatement string                          `json:"last_statement,omitempty"`
	Running       string                          `json:"running,omitempty"`
	Phases        map[catalog.Kind]*PhaseProgress `json:"phases"`
	ErrorMessage  string                          `json:"error_message,omitempty"`
	StartedAt     time.Time                       `json:"started_at"`
}

// APIInfo tracks the progress of a run. It implements
// coreinterfaces.StatementObserver.
type APIInfo struct {
	status        ServiceStatus
	stage         RunStage
	lastStatement string
	running       string
	phases        map[catalog.Kind]*PhaseProgress
	errorMessage  string
	startedAt     time.Time
	mu            sync.Mutex
}

func NewAPIInfo(c *catalog.Catalog) *APIInfo {
	phases := make(map[catalog.Kind]*PhaseProgress, len(catalog.Kinds))
	for _, p := range c.Phases() {
		phases[p.Kind] = &PhaseProgress{Total: len(p.Statements)}
	}
	return &APIInfo{
		status:    ServiceStatusRunning,
		stage:     RunStageInit,
		phases:    phases,
		startedAt: time.Now(),
	}
}

func (s *APIInfo) registerRouter(router *gin.Engine) {
	router.GET("/info", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.Snapshot())
	})
}

func (s *APIInfo) Snapshot() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	phases := make(map[catalog.Kind]*PhaseProgress, len(s.phases))
	for k, p := range s.phases {
		cp := *p
		phases[k] = &cp
	}
	return Info{
		Status:        s.status,
		Stage:         s.stage,
		LastStatement: s.lastStatement,
		Running:       s.running,
		Phases:        phases,
		ErrorMessage:  s.errorMessage,
		StartedAt:     s.startedAt,
	}
}

func (s *APIInfo) SetStage(stage RunStage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage = stage
	if stage == RunStageFinished && s.status == ServiceStatusRunning {
		s.status = ServiceStatusFinished
	}
}

func (s *APIInfo) SetFatalError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == ServiceStatusFatalError {
		log.Warn("Ignored new fatal errors", zap.Error(err))
		return
	}
	s.status = ServiceStatusFatalError
	s.errorMessage = err.Error()
}

func (s *APIInfo) OnStatementStart(stmt catalog.Statement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = stmt.Name
}

func (s *APIInfo) OnStatementDone(stmt catalog.Statement, _ time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = ""
	p, ok := s.phases[stmt.Kind]
	if !ok {
		p = &PhaseProgress{}
		s.phases[stmt.Kind] = p
	}
	if err != nil {
		p.Failed++
		return
	}
	p.Completed++
	s.lastStatement = stmt.Name
}
