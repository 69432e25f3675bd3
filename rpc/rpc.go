package rpc

import (
	"net"
	"net/rpc"

	"github.com/parlorgames/roomsync/logger"
	"github.com/parlorgames/roomsync/services"
)

// Server manages the RPC listener for operator tooling.
type Server struct {
	listener net.Listener
	address  string
}

func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// RoomAdmin exposes room statistics over net/rpc. Methods follow the
// net/rpc signature rules: exported args, pointer reply, error return.
type RoomAdmin struct {
	stats *services.RoomStatsService
}

func NewRoomAdmin(stats *services.RoomStatsService) *RoomAdmin {
	return &RoomAdmin{stats: stats}
}

type RoomSummaryArgs struct {
	RoomKey string
}

type RoomSummaryReply struct {
	Data map[string]interface{}
}

func (a *RoomAdmin) GetRoomSummary(args *RoomSummaryArgs, reply *RoomSummaryReply) error {
	data, err := a.stats.GetRoomSummary(args.RoomKey)
	if err != nil {
		return err
	}
	reply.Data = data
	return nil
}

type OccupancyArgs struct{}

type OccupancyReply struct {
	Data map[string]interface{}
}

func (a *RoomAdmin) GetOccupancy(_ *OccupancyArgs, reply *OccupancyReply) error {
	data, err := a.stats.GetOccupancy()
	if err != nil {
		return err
	}
	reply.Data = data
	return nil
}
