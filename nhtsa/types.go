package nhtsa

// decodeResponse is the DecodeVinValues payload. vPIC returns every value
// as a string.
type decodeResponse struct {
	Count   int            `json:"Count"`
	Message string         `json:"Message"`
	Results []decodeResult `json:"Results"`
}

type decodeResult struct {
	ErrorCode string `json:"ErrorCode"`
	ErrorText string `json:"ErrorText"`
	Make      string `json:"Make"`
	Model     string `json:"Model"`
	ModelYear string `json:"ModelYear"`
	BodyClass string `json:"BodyClass"`
}

type makesForTypeResponse struct {
	Results []struct {
		MakeName string `json:"MakeName"`
	} `json:"Results"`
}

type allMakesResponse struct {
	Results []struct {
		MakeName string `json:"Make_Name"`
	} `json:"Results"`
}
