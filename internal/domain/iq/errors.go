package iq

import "errors"

// ErrNilProfile is returned when AddSession is called without a profile.
var ErrNilProfile = errors.New("profile is nil")
