package aanet

// packet.go defines the packet variants passed through the simulator,
// and the transmission records the channel writes into receiver inboxes

// pcktType is the base type for an enumerated type of packet variants
type pcktType int

const (
	dataPckt pcktType = iota
	controlPckt
	ackPckt
)

// pcktTypeToStr returns a string name corresponding to an input pcktType
func pcktTypeToStr(pt pcktType) string {
	switch pt {
	case dataPckt:
		return "data"
	case controlPckt:
		return "control"
	case ackPckt:
		return "ack"
	}
	return "unknown"
}

// TransmitMode is the base type for an enumerated type of transmission modes
type TransmitMode int

const (
	Unicast TransmitMode = iota
	Multicast
	Broadcast
)

// noDrone marks the absence of a drone id, e.g. an unresolved next hop
const noDrone int = -1

// A Packet is the unit of traffic pushed through the pipeline.  The same
// struct carries all three variants; which fields are meaningful depends
// on PcktType
type Packet struct {
	PcktID     int     // unique among all packets in a run
	PcktType   pcktType
	Mode       TransmitMode
	SrcID      int     // id of the drone that generated the packet
	PrevHopID  int     // id of the drone currently transmitting the packet
	NxtHopID   int     // id of the drone the current transmission targets, noDrone if unresolved
	DstID      int     // final destination, data packets only
	FlowID     int     // session the packet belongs to, data packets only
	SeqNum     int     // end-to-end sequence number within the flow
	CreateTime float64 // virtual time of generation at the application layer
	LenBits    int     // packet length in bits
	TTL        int     // remaining allowed forwarding hops
	Retransmits int    // number of MAC retransmissions so far
	MCSIndex   int     // modulation and coding scheme used on the air
	AckForID   int     // ack packets: id of the data packet acknowledged
	AckTarget  int     // ack packets: id of the drone the ack is addressed to
	Recipients []int   // multicast mode: explicit recipient list
}

// createDataPckt is a constructor for an application-layer data packet
func createDataPckt(srcID, dstID, flowID, seqNum, lenBits, ttl, mcs int, now float64) *Packet {
	pckt := new(Packet)
	pckt.PcktID = nxtID()
	pckt.PcktType = dataPckt
	pckt.Mode = Unicast
	pckt.SrcID = srcID
	pckt.PrevHopID = srcID
	pckt.NxtHopID = noDrone
	pckt.DstID = dstID
	pckt.FlowID = flowID
	pckt.SeqNum = seqNum
	pckt.CreateTime = now
	pckt.LenBits = lenBits
	pckt.TTL = ttl
	pckt.MCSIndex = mcs
	pckt.AckForID = noDrone
	pckt.AckTarget = noDrone
	return pckt
}

// createAckPckt is a constructor for the acknowledgement of a received data packet
func createAckPckt(sender *droneNode, dataPckt *Packet, lenBits int, now float64) *Packet {
	pckt := new(Packet)
	pckt.PcktID = nxtID()
	pckt.PcktType = ackPckt
	pckt.Mode = Unicast
	pckt.SrcID = sender.droneID
	pckt.PrevHopID = sender.droneID
	pckt.NxtHopID = dataPckt.PrevHopID
	pckt.DstID = dataPckt.PrevHopID
	pckt.CreateTime = now
	pckt.LenBits = lenBits
	pckt.TTL = 1
	pckt.MCSIndex = dataPckt.MCSIndex
	pckt.AckForID = dataPckt.PcktID
	pckt.AckTarget = dataPckt.PrevHopID
	return pckt
}

// createControlPckt is a constructor for a broadcast control packet (e.g. a hello beacon)
func createControlPckt(srcID, lenBits, mcs int, now float64) *Packet {
	pckt := new(Packet)
	pckt.PcktID = nxtID()
	pckt.PcktType = controlPckt
	pckt.Mode = Broadcast
	pckt.SrcID = srcID
	pckt.PrevHopID = srcID
	pckt.NxtHopID = noDrone
	pckt.DstID = noDrone
	pckt.CreateTime = now
	pckt.LenBits = lenBits
	pckt.TTL = 1
	pckt.MCSIndex = mcs
	pckt.AckForID = noDrone
	pckt.AckTarget = noDrone
	return pckt
}

// A pos holds a position in three-dimensional space, in meters
type pos struct {
	x, y, z float64
}

// A xmitRecord is an inbox entry describing one in-flight copy of a packet
// as seen by one receiver.  The channel appends these; the resolver reads
// and prunes them
type xmitRecord struct {
	recID     int     // unique id of this transmission copy
	pckt      *Packet // packet being carried
	senderID  int     // id of the transmitting drone
	power     float64 // transmit power in watts
	srtTime   float64 // virtual time the transmission began
	endTime   float64 // virtual time the transmission ends
	senderPos pos     // sender position snapshot at transmission start
	resolved  bool    // set once the resolver has judged the record
}

// overlaps reports whether two records share at least one instant of air-time.
// The interval intersection is inclusive on both ends
func (rec *xmitRecord) overlaps(other *xmitRecord) bool {
	return rec.srtTime <= other.endTime && other.srtTime <= rec.endTime
}
