package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNew() {
	err := New(ErrCodeInvalidConfiguration, "bad config")
	suite.Equal(ErrCodeInvalidConfiguration, err.Code)
	suite.Equal("[101] bad config", err.Error())
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewf() {
	err := Newf(ErrCodeNoDataFound, "no bars for %s", "AAPL")
	suite.Equal("[200] no bars for AAPL", err.Error())
}

func (suite *ErrorTestSuite) TestWrap() {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, ErrCodeDataSourceUnavailable, "fetch failed")
	suite.Equal("[201] fetch failed: connection refused", err.Error())
	suite.Equal(cause, stderrors.Unwrap(err))
}

func (suite *ErrorTestSuite) TestWrapCarriesRunFailureCode() {
	cause := stderrors.New("context canceled")
	err := Wrap(cause, ErrCodeBacktestRunFailed, "backtest cancelled")

	suite.True(HasCode(err, ErrCodeBacktestRunFailed))
	suite.Equal(cause, stderrors.Unwrap(err))
}

func (suite *ErrorTestSuite) TestWrapfPreservesChain() {
	cause := stderrors.New("boom")
	err := Wrapf(cause, ErrCodeQueryFailed, "query %d failed", 42)
	wrapped := fmt.Errorf("outer: %w", err)

	suite.True(HasCode(wrapped, ErrCodeQueryFailed))
	suite.True(Is(wrapped, cause))
}

func (suite *ErrorTestSuite) TestGetCodeNonStructured() {
	suite.Equal(ErrCodeUnknown, GetCode(stderrors.New("plain")))
	suite.False(HasCode(stderrors.New("plain"), ErrCodeNoDataFound))
}
