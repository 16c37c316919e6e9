package service

// QRCodeService renders links as QR code images
type QRCodeService interface {
	// GenerateLinkQR encodes the link as a PNG image
	GenerateLinkQR(link string) ([]byte, error)
}
