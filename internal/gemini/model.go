package gemini

// Gemini model IDs used by the stylist.
//
// | Model                 | API Model ID               | Use                          |
// |-----------------------|----------------------------|------------------------------|
// | Gemini 2.5 Flash Image| gemini-2.5-flash-image     | Image editing (default)      |
// | Gemini 3 Pro Image    | gemini-3-pro-image-preview | Higher quality image editing |
// | Gemini 2.5 Flash Lite | gemini-2.5-flash-lite      | API key validation           |
const (
	ModelGemini25FlashImage = "gemini-2.5-flash-image"
	ModelGemini3ProImage    = "gemini-3-pro-image-preview"
	ModelGemini25FlashLite  = "gemini-2.5-flash-lite"
)

// DefaultImageModel is the model used for style generation unless
// GEMINI_IMAGE_MODEL or --model says otherwise.
const DefaultImageModel = ModelGemini25FlashImage

// ValidationModel is the cheap text model used to check the API key.
const ValidationModel = ModelGemini25FlashLite

// Transport names accepted by New.
const (
	TransportSDK  = "sdk"
	TransportREST = "rest"
)
