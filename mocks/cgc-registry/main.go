// Command cgc-registry is a local stand-in for the comptroller's registry
// used by the prefill endpoint. It issues a token on /login and answers
// /usuarios/{dpi} with canned records, so the server can run end to end
// without upstream access.
//
//	go run . -addr :9090
//	PREFILL_API_URL=http://localhost:9090 BASE_API_USER=mock BASE_API_PASSWORD=mock ...
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
)

var people = map[string]map[string]string{
	"1234567890123": {
		"dpi":            "1234567890123",
		"primerNombre":   "Ana",
		"segundoNombre":  "María",
		"primerApellido": "García",
		"correoPersonal": "ana@example.com",
		"sexo":           "F",
		"pais":           "GUATEMALA",
		"departamento":   "GUATEMALA",
		"municipio":      "MIXCO",
		"nit":            "1234567",
		"telefono":       "55512345",
		"entidad":        "MINISTERIO DE SALUD PUBLICA Y ASISTENCIA SOCIAL",
		"renglon":        "029",
	},
	// snake_case record, exercises the alias fallbacks downstream
	"9876543210987": {
		"dpi":             "9876543210987",
		"primer_nombre":   "Carlos",
		"primer_apellido": "López",
		"correo_personal": "carlos@example.com",
		"pais":            "GUATEMALA",
	},
}

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"token": "mock-token"})
	})
	mux.HandleFunc("GET /usuarios/{dpi}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer mock-token" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "token inválido"})
			return
		}
		person, ok := people[r.PathValue("dpi")]
		if !ok {
			writeJSON(w, http.StatusOK, map[string]any{"list": []any{}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"list": []any{person}})
	})

	log.Printf("cgc-registry mock listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, mux))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
