package models

// DirectoryFilter - параметры поиска по справочнику и отчётов.
type DirectoryFilter struct {
	Query   string
	Fields  []Field
	Country string
	Batch   *int
	Limit   int
	Offset  int
}

type CountBucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type Report struct {
	Rows      []AlumniProfile `json:"rows"`
	Total     int             `json:"total"`
	ByField   []CountBucket   `json:"by_field"`
	ByCountry []CountBucket   `json:"by_country"`
}
