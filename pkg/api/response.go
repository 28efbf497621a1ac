// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"bytes"
	"encoding/xml"
	"net/http"

	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/s3consts"
	"github.com/LeeDigitalWorks/zapgate/pkg/s3api/s3err"
)

type wrappedResponseRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func (w *wrappedResponseRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		w.statusCode = code
		w.wroteHeader = true
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *wrappedResponseRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += int64(n)
	return n, err
}

// writeXMLResponse writes a 200 XML response.
func writeXMLResponse(w http.ResponseWriter, d *requestData, v any) {
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set(s3consts.XAmzRequestID, d.requestID)
	w.WriteHeader(http.StatusOK)
	xml.NewEncoder(w).Encode(v)
}

func writeXMLErrorResponse(w http.ResponseWriter, d *requestData, s3code s3err.ErrorCode) {
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set(s3consts.XAmzRequestID, d.requestID)

	resource := d.bucket
	if d.key != "" {
		resource = d.bucket + "/" + d.key
	}
	s3error := s3code.ToErrorResponse(resource)
	if d.requestID != "" {
		s3error.RequestID = d.requestID
	} else {
		s3error.RequestID = "NotAvailable"
	}

	var bytesBuffer bytes.Buffer
	xml.NewEncoder(&bytesBuffer).Encode(s3error)

	w.WriteHeader(s3error.HTTPCode)
	if len(bytesBuffer.Bytes()) > 0 {
		w.Write(bytesBuffer.Bytes())
	}
}
