// Package control provides the recorder's local control socket.
//
// The server listens on a Unix domain socket. Each request is one line of
// text and each response is one line of JSON:
//
//	start <name>   create (or re-create) the session folder, then capture
//	stop           stop capture and flush the manifest
//	status         report the sampler state
//	reload         re-read reloadable configuration
//
//	{"ok":true,"status":{...}}
//	{"ok":false,"error":{"code":"AR-SESS-4090","message":"..."}}
//
// The socket is created with mode 0600; no further authentication is done.
package control
