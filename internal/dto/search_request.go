package dto

type SearchRequest struct {
	OrganizationSlug string `json:"organizationSlug" binding:"required"`
	Query            string `json:"query" binding:"required,min=1"`
	ProjectSlug      string `json:"projectSlug,omitempty"`
	RegionURL        string `json:"regionUrl,omitempty" binding:"omitempty,url"`
	Limit            int    `json:"limit,omitempty" binding:"omitempty,min=1,max=100"`
}

// EffectiveLimit applies the default row cap when the caller left it unset.
func (r SearchRequest) EffectiveLimit() int {
	if r.Limit == 0 {
		return 10
	}
	return r.Limit
}
