package models

// UploadState represents the guest upload flow progress
type UploadState string

const (
	UploadIdle       UploadState = "idle"
	UploadCapturing  UploadState = "capturing"
	UploadPreview    UploadState = "preview"
	UploadChecking   UploadState = "checking"
	UploadCaptioning UploadState = "captioning"
	UploadUploading  UploadState = "uploading"
	UploadSuccess    UploadState = "success"
)
