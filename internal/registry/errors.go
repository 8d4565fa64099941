// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package registry

import "errors"

var (
	// ErrAlreadyRegistered is returned by Create when ExternalID collides with an existing series.
	ErrAlreadyRegistered = errors.New("registry: series already registered")

	// ErrInvalidSourceCount is returned when a source URL list violates MinSourcesPerSeries..MaxSourcesPerSeries.
	ErrInvalidSourceCount = errors.New("registry: series requires 1 to 3 unique source URLs")
)
