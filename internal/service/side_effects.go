package service

import (
	"ace_lms_backend/pkg/logger"
	"ace_lms_backend/pkg/monitoring"

	"go.uber.org/zap"
)

const (
	StepMVKProgress           = "mvk_progress"
	StepAssessmentCompletion  = "gamification_assessment"
	StepCourseCompletion      = "gamification_course"
	StepAchievementUnlock     = "achievement_unlock"
	StepCertificationListener = "certification_reward"
)

// SideEffectFailure 联动步骤失败的记录，主流程已成功落库
type SideEffectFailure struct {
	Step  string `json:"step"`
	Ref   string `json:"ref,omitempty"`
	Error string `json:"error"`
}

// runSideEffect 在独立的错误边界内执行联动步骤，失败只记录不向上抛
func runSideEffect(step, ref string, fn func() error) *SideEffectFailure {
	if err := fn(); err != nil {
		logger.Log.Warn("side effect failed",
			zap.String("step", step),
			zap.String("ref", ref),
			zap.Error(err))
		monitoring.SideEffectFailures.WithLabelValues(step).Inc()
		return &SideEffectFailure{Step: step, Ref: ref, Error: err.Error()}
	}
	return nil
}

func appendFailure(list []SideEffectFailure, f *SideEffectFailure) []SideEffectFailure {
	if f != nil {
		list = append(list, *f)
	}
	return list
}
