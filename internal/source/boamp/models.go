package boamp

// APIResponse is the explore-API envelope. total_count reports how many
// records match the filter, independent of the page actually returned.
type APIResponse struct {
	TotalCount int      `json:"total_count"`
	Results    []Record `json:"results"`
}

// Record is one raw announcement as the open-data API returns it.
// Every field the upstream may omit is a pointer; nothing here is
// trusted until transform maps it into the canonical shape.
type Record struct {
	IDWeb         string  `json:"idweb"`
	Objet         *string `json:"objet"`
	NomAcheteur   *string `json:"nomacheteur"`
	DateParution  *string `json:"dateparution"`
	DateLimite    *string `json:"datelimitereponse"`
	TypeProcedure *string `json:"typeprocedure"`
	Nature        *string `json:"nature"`
	URLAvis       *string `json:"url_avis"`
}
