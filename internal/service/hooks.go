package service

import "ace_lms_backend/internal/model"

// ItemCompletionRecorder 课程/测验完成后推进 MVK 要求
type ItemCompletionRecorder interface {
	RecordItemCompletion(userID string, t model.RequirementType, itemID string, score int) ([]SideEffectFailure, error)
}

// CompletionRecorder 由积分体系实现，接收课程与测验的完成事件
type CompletionRecorder interface {
	RecordCourseCompletion(userID, courseID string) (*CompletionResult, error)
	RecordAssessmentCompletion(userID, submissionID string) (*CompletionResult, error)
}

// CertificationListener 认证首次完成时触发
type CertificationListener interface {
	CertificationCompleted(userID string, cert *model.MVKCertification, uc *model.UserCertification) error
}
