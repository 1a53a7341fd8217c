package utils

type ResponseData struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// PanicIfNeeded hands err to the recovery middleware, which renders it as JSON.
func PanicIfNeeded(err any) {
	if err != nil {
		panic(err)
	}
}
