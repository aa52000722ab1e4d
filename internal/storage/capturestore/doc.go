// Package capturestore persists AR capture sessions on the local filesystem.
//
// Each session is one folder under the document root:
//
//	<root>/<session>/
//	    20240101120000.jpg
//	    20240101120001.jpg
//	    info.json
//
// Images are written as they are captured. The info.json manifest is written
// once, when capture stops, and replaced atomically (temp file + rename).
package capturestore
