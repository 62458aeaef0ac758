// Package types provides core types used across the lexrag pipeline.
// This package has ZERO dependencies on other lexrag packages to avoid
// circular imports. All other packages should import types from here.
package types
