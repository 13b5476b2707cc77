package chunk

import "errors"

// ErrInvalidConfig は Splitter の設定が不正な場合に返されます
var ErrInvalidConfig = errors.New("invalid chunker config")
