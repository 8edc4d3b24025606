// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rtmpstats

import "encoding/xml"

// Wire model for the nginx-rtmp /stat document. Only the fields the
// sampler reads are declared; everything else is skipped by the decoder.

type statsDocument struct {
	XMLName xml.Name    `xml:"rtmp"`
	Server  statsServer `xml:"server"`
}

type statsServer struct {
	Applications []statsApplication `xml:"application"`
}

type statsApplication struct {
	Name    string        `xml:"name"`
	Live    statsLive     `xml:"live"`
	Streams []statsStream `xml:"stream"`
}

type statsLive struct {
	Streams []statsStream `xml:"stream"`
}

type statsStream struct {
	Name       string        `xml:"name"`
	Publishing string        `xml:"publishing"`
	BwVideo    int64         `xml:"bw_video"`
	NClients   int           `xml:"nclients"`
	Clients    []statsClient `xml:"client"`
}

// A publisher client carries an empty <publishing/> marker element;
// presence is the signal, so the field is a pointer.
type statsClient struct {
	Address    string    `xml:"address"`
	Publishing *struct{} `xml:"publishing"`
}
