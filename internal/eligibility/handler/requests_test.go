package handler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"unimatch/internal/eligibility/report"
	dErrors "unimatch/pkg/domain-errors"
)

type EvaluateRequestSuite struct {
	suite.Suite
}

func TestEvaluateRequestSuite(t *testing.T) {
	suite.Run(t, new(EvaluateRequestSuite))
}

func (s *EvaluateRequestSuite) valid() *EvaluateRequest {
	return &EvaluateRequest{
		Subjects: []SubjectEntry{{Name: " Maths ", Mark: 70}, {Name: "English HL", Mark: 64}},
		SortBy:   " program ",
		Filter:   FilterRequest{Category: " Science ", Institution: "uct", EligibleOnly: true},
	}
}

func (s *EvaluateRequestSuite) TestNormalize() {
	s.Run("trims fields", func() {
		req := s.valid()
		req.Normalize()
		s.Equal("Maths", req.Subjects[0].Name)
		s.Equal("program", req.SortBy)
		s.Equal("Science", req.Filter.Category)
	})

	s.Run("nil request does not panic", func() {
		var req *EvaluateRequest
		s.NotPanics(func() { req.Normalize() })
	})
}

func (s *EvaluateRequestSuite) TestValidate() {
	s.Run("valid request parses sort and filter", func() {
		req := s.valid()
		req.Normalize()
		s.Require().NoError(req.Validate())
		s.Equal(report.SortByProgram, req.ParsedSort())
		s.Equal(report.Filter{Category: "Science", InstitutionCode: "uct", EligibleOnly: true}, req.ParsedFilter())
		s.Len(req.Entries(), 2)
	})

	s.Run("empty sort defaults to score", func() {
		req := s.valid()
		req.SortBy = ""
		s.Require().NoError(req.Validate())
		s.Equal(report.SortByScore, req.ParsedSort())
	})

	tests := []struct {
		name   string
		mutate func(*EvaluateRequest)
		code   dErrors.Code
	}{
		{"no subjects", func(r *EvaluateRequest) { r.Subjects = nil }, dErrors.CodeValidation},
		{"too many subjects", func(r *EvaluateRequest) { r.Subjects = make([]SubjectEntry, maxSubjects+1) }, dErrors.CodeValidation},
		{"blank name", func(r *EvaluateRequest) { r.Subjects[1].Name = "" }, dErrors.CodeValidation},
		{"long name", func(r *EvaluateRequest) { r.Subjects[0].Name = strings.Repeat("a", maxSubjectNameLength+1) }, dErrors.CodeValidation},
		{"unknown sort", func(r *EvaluateRequest) { r.SortBy = "rank" }, dErrors.CodeValidation},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			req := s.valid()
			req.Normalize()
			tt.mutate(req)
			err := req.Validate()
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, tt.code))
		})
	}

	s.Run("nil request", func() {
		var req *EvaluateRequest
		s.True(dErrors.HasCode(req.Validate(), dErrors.CodeBadRequest))
	})
}
