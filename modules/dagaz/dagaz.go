package dagaz

import (
	"context"

	"github.com/aukilabs/hagall-common/messages/dagazpb"
	hwebsocket "github.com/aukilabs/hagall-common/websocket"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// The octree queries run by the dagaz messages.
const (
	QueryKindFindNodes = "find_nodes"
	QueryKindVolume    = "volume"
	QueryKindDebugInfo = "debug_info"
)

// Module answers dagaz quad messages from a spatial partition shared by all
// the connections it is handed to.
type Module struct {
	partition SpatialPartition
}

func NewModule(p SpatialPartition) *Module {
	return &Module{partition: p}
}

func (m *Module) Name() string {
	return "dagaz"
}

// QueryKind returns the octree query answering the given message.
func (m *Module) QueryKind(msg hwebsocket.Msg) string {
	switch dagazpb.MsgType(msg.Type.Number()) {
	case dagazpb.MsgType_MSG_TYPE_DAGAZ_QUAD_SAMPLE:
		return QueryKindFindNodes

	case dagazpb.MsgType_MSG_TYPE_DAGAZ_GET_GROUND_PLANE_REQUEST,
		dagazpb.MsgType_MSG_TYPE_DAGAZ_GET_REGION_REQUEST:
		return QueryKindVolume

	case dagazpb.MsgType_MSG_TYPE_DAGAZ_GET_DEBUG_INFO_REQUEST:
		return QueryKindDebugInfo

	default:
		return ""
	}
}

func (m *Module) HandleMsg(ctx context.Context, respond hwebsocket.ResponseSender, msg hwebsocket.Msg) error {
	var err error

	switch dagazpb.MsgType(msg.Type.Number()) {
	case dagazpb.MsgType_MSG_TYPE_DAGAZ_QUAD_SAMPLE:
		err = m.HandleDagazQuadSample(ctx, msg)

	case dagazpb.MsgType_MSG_TYPE_DAGAZ_GET_GROUND_PLANE_REQUEST:
		err = m.HandleDagazGetGroundPlane(ctx, respond, msg)

	case dagazpb.MsgType_MSG_TYPE_DAGAZ_GET_REGION_REQUEST:
		err = m.HandleDagazGetRegion(ctx, respond, msg)

	case dagazpb.MsgType_MSG_TYPE_DAGAZ_GET_DEBUG_INFO_REQUEST:
		err = m.HandleDagazGetDebugInfo(ctx, respond, msg)

	default:
		err = hwebsocket.ErrModuleMsgSkip
	}

	return err
}

func (m *Module) HandleDagazQuadSample(ctx context.Context, msg hwebsocket.Msg) error {
	var newQuadSample dagazpb.DagazQuadSample
	if err := msg.DataTo(&newQuadSample); err != nil {
		return err
	}

	for _, newQuad := range newQuadSample.Samples {
		m.partition.InsertQuad(NewQuadFromProtobuf(newQuad))
	}
	return nil
}

func (m *Module) HandleDagazGetGroundPlane(ctx context.Context, respond hwebsocket.ResponseSender, msg hwebsocket.Msg) error {
	var req dagazpb.DagazGetGroundPlaneRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	quadHit, _ := m.partition.IntersectQuad(NewSegmentFromProtobuf(req.Ray))
	if quadHit == nil {
		// create an invalid quad to be able to have a response:
		quadHit = &Quad{}
	}

	respond.Send(&dagazpb.DagazGetGroundPlaneResponse{
		Type:      dagazpb.MsgType_MSG_TYPE_DAGAZ_GET_GROUND_PLANE_RESPONSE,
		Timestamp: timestamppb.Now(),
		RequestId: req.RequestId,
		Ground:    quadHit.ToProtobuf(),
	})
	return nil
}

func (m *Module) HandleDagazGetRegion(ctx context.Context, respond hwebsocket.ResponseSender, msg hwebsocket.Msg) error {
	var req dagazpb.DagazGetRegionRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	regionQuads := m.partition.GetRegion(NewVector3FromProtobuf(req.Min), NewVector3FromProtobuf(req.Max))
	regionQuadsProtobuf := make([]*dagazpb.Quad, len(regionQuads))
	for i, q := range regionQuads {
		regionQuadsProtobuf[i] = q.ToProtobuf()
	}

	respond.Send(&dagazpb.DagazGetRegionResponse{
		Type:      dagazpb.MsgType_MSG_TYPE_DAGAZ_GET_REGION_RESPONSE,
		Timestamp: timestamppb.Now(),
		RequestId: req.RequestId,
		Quads:     regionQuadsProtobuf,
	})
	return nil
}

// HandleDagazGetDebugInfo describes the partition with the grid fields of the
// debug response: the resolution is the max depth, rows are tree levels and
// columns are octants.
func (m *Module) HandleDagazGetDebugInfo(ctx context.Context, respond hwebsocket.ResponseSender, msg hwebsocket.Msg) error {
	var req dagazpb.DagazGetDebugInfoRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	debugInfo := m.partition.GetDebugInfo()

	respond.Send(&dagazpb.DagazGetDebugInfoResponse{
		Type:           dagazpb.MsgType_MSG_TYPE_DAGAZ_GET_DEBUG_INFO_RESPONSE,
		Timestamp:      timestamppb.Now(),
		RequestId:      req.RequestId,
		GridResolution: debugInfo.MaxDepth,
		GridRowCount:   (uint32)(len(debugInfo.Occupancy)),
		GridColCount:   debugInfo.OctantCount,
		GridPlaneCount: debugInfo.PlaneCount,
		GridMergeCount: debugInfo.MergeCount,
		GridMinPoint:   vector3ToProtobuf(debugInfo.MinPoint),
		GridMaxPoint:   vector3ToProtobuf(debugInfo.MaxPoint),
		Occupancy:      debugInfo.Occupancy,
	})
	return nil
}
