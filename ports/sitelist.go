package ports

import (
	"pvcapacity/domain/montecarlo"
	"pvcapacity/domain/sitelist"
)

// SiteListSource produces the classified base site list
type SiteListSource interface {
	LoadSiteList(path string) (*sitelist.SiteList, error)
}

// ErrorConfigSource produces the error distribution configuration
type ErrorConfigSource interface {
	LoadErrorConfig(path string) (*montecarlo.ErrorConfig, error)
}
