////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package main

import (
	"fmt"
	"net/http"
)

// withIsolationHeaders marks every response cross-origin isolated. The SQLite
// OPFS VFS refuses to run without these headers.
func withIsolationHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
		next.ServeHTTP(w, r)
	})
}

func main() {
	port := "9090"
	root := "../assets"
	fmt.Printf("Starting server on port %s from %s\n", port, root)
	fmt.Printf("\thttp://localhost:%s\n", port)

	handler := withIsolationHeaders(http.FileServer(http.Dir(root)))
	err := http.ListenAndServe(":"+port, handler)
	if err != nil {
		panic(fmt.Sprintf("Failed to start server: %+v", err))
	}
}
