package course

import "github.com/google/uuid"

// certificateNamespace scopes certificate IDs (UUIDv5) to this app.
var certificateNamespace = uuid.MustParse("8f1c0e52-3a57-4d0a-9b0e-6c1f2f7d4e21")

// CertificateID is the deterministic ID of the certificate of learnerID in courseID.
func CertificateID(learnerID, courseID string) string {
	return uuid.NewSHA1(certificateNamespace, []byte(learnerID+"/"+courseID)).String()
}

// CertificateNumber is the human readable certificate reference.
func CertificateNumber(learnerID, courseID string) string {
	return learnerID + "-" + courseID
}
