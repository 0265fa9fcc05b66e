package service

import "errors"

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrAlreadyProcessing = errors.New("job already processing")
	ErrAlreadyCompleted  = errors.New("job already completed")
	ErrSongsNotConfirmed = errors.New("tracklist not confirmed")
	ErrInvalidTransition = errors.New("invalid status transition")
)
