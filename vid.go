// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pablo

import (
	"fmt"
)

// VideoID is the logical video node identity carried by a node.
type VideoID uint32

const (
	VidNone VideoID = iota
	VidSensor
	VidSSVC0
	VidSSVC1
	VidSSVC2
	VidSSVC3

	VidCSTAT
	VidCSTATLmeDS
	VidCSTATFdpig
	VidCSTATDrc
	VidCSTATCds

	VidBYRP
	VidBYRPHdr
	VidBYRPByr

	VidRGBP
	VidRGBPHf
	VidRGBPSf
	VidRGBPYuv
	VidRGBPRgb

	VidLME
	VidLMEPrev
	VidLMEMv
	VidLMESad

	VidMCFP
	VidMCFPPrevYuv
	VidMCFPPrevW
	VidMCFPMv
	VidMCFPYuv
	VidMCFPW

	VidYUVP
	VidYUVPSeg
	VidYUVPDrc
	VidYUVPClahe
	VidYUVPHf

	numVids
)

// Direction of a DMA node.
type Direction int

const (
	DirIn Direction = iota
	DirOut
)

const noParam ParamIndex = -1

type vidInfo struct {
	name   string
	ip     IP
	param  ParamIndex // Parameter block fed by the node, noParam if none
	dir    Direction
	leader bool
	peer   VideoID // vOTF peer, VidNone if the node cannot use vOTF
	vc     int     // CSI virtual channel
}

// vidTable is the static mapping of every video node to the block it
// feeds. Entries with an empty name are unsupported.
var vidTable = [numVids]vidInfo{
	VidSensor: {"sensor", CSI, noParam, DirIn, true, VidNone, 0},
	VidSSVC0:  {"ss_vc0", CSI, ParamCSIDmaOutputVC0, DirOut, false, VidNone, 0},
	VidSSVC1:  {"ss_vc1", CSI, ParamCSIDmaOutputVC1, DirOut, false, VidNone, 1},
	VidSSVC2:  {"ss_vc2", CSI, ParamCSIDmaOutputVC2, DirOut, false, VidNone, 2},
	VidSSVC3:  {"ss_vc3", CSI, ParamCSIDmaOutputVC3, DirOut, false, VidNone, 3},

	VidCSTAT:      {"cstat", CSTAT, ParamCSTATDmaInput, DirIn, true, VidNone, 0},
	VidCSTATLmeDS: {"cstat_lme_ds", CSTAT, ParamCSTATLmeDS, DirOut, false, VidNone, 0},
	VidCSTATFdpig: {"cstat_fdpig", CSTAT, ParamCSTATFdpig, DirOut, false, VidNone, 0},
	VidCSTATDrc:   {"cstat_drc", CSTAT, ParamCSTATDrc, DirOut, false, VidNone, 0},
	VidCSTATCds:   {"cstat_cds", CSTAT, ParamCSTATCds, DirOut, false, VidNone, 0},

	VidBYRP:    {"byrp", BYRP, ParamBYRPDmaInput, DirIn, true, VidNone, 0},
	VidBYRPHdr: {"byrp_hdr", BYRP, ParamBYRPHdrInput, DirIn, false, VidNone, 0},
	VidBYRPByr: {"byrp_byr", BYRP, ParamBYRPByrOutput, DirOut, false, VidNone, 0},

	VidRGBP:    {"rgbp", RGBP, ParamRGBPDmaInput, DirIn, true, VidNone, 0},
	VidRGBPHf:  {"rgbp_hf", RGBP, ParamRGBPHfOutput, DirOut, false, VidYUVPHf, 0},
	VidRGBPSf:  {"rgbp_sf", RGBP, ParamRGBPSfOutput, DirOut, false, VidNone, 0},
	VidRGBPYuv: {"rgbp_yuv", RGBP, ParamRGBPYuvOutput, DirOut, false, VidNone, 0},
	VidRGBPRgb: {"rgbp_rgb", RGBP, ParamRGBPRgbOutput, DirOut, false, VidNone, 0},

	VidLME:     {"lme", LME, ParamLMEDmaInput, DirIn, true, VidNone, 0},
	VidLMEPrev: {"lme_prev", LME, ParamLMEPrevInput, DirIn, false, VidNone, 0},
	VidLMEMv:   {"lme_mv", LME, ParamLMEMvOutput, DirOut, false, VidMCFPMv, 0},
	VidLMESad:  {"lme_sad", LME, ParamLMESadOutput, DirOut, false, VidNone, 0},

	VidMCFP:        {"mcfp", MCFP, ParamMCFPDmaInput, DirIn, true, VidNone, 0},
	VidMCFPPrevYuv: {"mcfp_prev_yuv", MCFP, ParamMCFPPrevYuvInput, DirIn, false, VidNone, 0},
	VidMCFPPrevW:   {"mcfp_prev_w", MCFP, ParamMCFPPrevWInput, DirIn, false, VidNone, 0},
	VidMCFPMv:      {"mcfp_mv", MCFP, ParamMCFPMvInput, DirIn, false, VidLMEMv, 0},
	VidMCFPYuv:     {"mcfp_yuv", MCFP, ParamMCFPYuvOutput, DirOut, false, VidNone, 0},
	VidMCFPW:       {"mcfp_w", MCFP, ParamMCFPWOutput, DirOut, false, VidNone, 0},

	VidYUVP:      {"yuvp", YUVP, ParamYUVPDmaInput, DirIn, true, VidNone, 0},
	VidYUVPSeg:   {"yuvp_seg", YUVP, ParamYUVPSegInput, DirIn, false, VidNone, 0},
	VidYUVPDrc:   {"yuvp_drc", YUVP, ParamYUVPDrcInput, DirIn, false, VidNone, 0},
	VidYUVPClahe: {"yuvp_clahe", YUVP, ParamYUVPClaheInput, DirIn, false, VidNone, 0},
	VidYUVPHf:    {"yuvp_hf", YUVP, ParamYUVPHfInput, DirIn, false, VidRGBPHf, 0},
}

// lookupVid returns the table entry of a supported video node.
func lookupVid(v VideoID) (vidInfo, error) {
	if v >= numVids || vidTable[v].name == "" {
		return vidInfo{}, fmt.Errorf("vid %d: %w", uint32(v), ErrUnsupportedVideoID)
	}
	return vidTable[v], nil
}

func (v VideoID) String() string {
	if v < numVids && vidTable[v].name != "" {
		return vidTable[v].name
	}
	return fmt.Sprintf("vid(%d)", uint32(v))
}

// IP returns the IP the video node belongs to.
func (v VideoID) IP() (IP, error) {
	vi, err := lookupVid(v)
	return vi.ip, err
}

// producer returns the producing side of a vOTF link.
func (vi vidInfo) producer(v VideoID) VideoID {
	if vi.dir == DirOut {
		return v
	}
	return vi.peer
}
